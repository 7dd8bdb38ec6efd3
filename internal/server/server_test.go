package server

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"net"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/avolkov/sentryfleet/internal/audit"
	"github.com/avolkov/sentryfleet/internal/protocol"
	"github.com/avolkov/sentryfleet/internal/registry"
)

// startTestServer runs a full server over a real CSV audit log and
// returns its address.
func startTestServer(t *testing.T) string {
	t.Helper()

	auditLog, err := audit.Open(filepath.Join(t.TempDir(), "audit.csv"))
	if err != nil {
		t.Fatalf("opening audit log: %v", err)
	}
	t.Cleanup(func() { auditLog.Close() })

	ctrl := registry.NewController(auditLog, rand.New(rand.NewPCG(11, 11)))
	srv := New("127.0.0.1:0", NewDispatcher(ctrl, auditLog), auditLog)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Error("server did not shut down")
		}
	})

	// Wait for the listener to bind.
	deadline := time.Now().Add(5 * time.Second)
	for {
		addr := srv.Addr()
		if !strings.HasSuffix(addr, ":0") {
			return addr
		}
		if time.Now().After(deadline) {
			t.Fatal("server never bound a port")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

type testClient struct {
	conn    net.Conn
	reader  *bufio.Reader
	encoder *json.Encoder
}

func dialTest(t *testing.T, addr string) *testClient {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dialing %s: %v", addr, err)
	}
	t.Cleanup(func() { conn.Close() })
	return &testClient{
		conn:    conn,
		reader:  bufio.NewReader(conn),
		encoder: json.NewEncoder(conn),
	}
}

func (c *testClient) roundTrip(t *testing.T, req protocol.Request) protocol.Response {
	t.Helper()
	if err := c.encoder.Encode(req); err != nil {
		t.Fatalf("sending request: %v", err)
	}
	line, err := c.reader.ReadString('\n')
	if err != nil {
		t.Fatalf("reading response: %v", err)
	}
	var resp protocol.Response
	if err := json.Unmarshal([]byte(line), &resp); err != nil {
		t.Fatalf("decoding response %q: %v", line, err)
	}
	return resp
}

func TestServerPingAndMalformedInput(t *testing.T) {
	addr := startTestServer(t)
	client := dialTest(t, addr)

	resp := client.roundTrip(t, protocol.NewRequest(protocol.CmdPing, nil))
	if !resp.Success || resp.Message != "PONG" {
		t.Errorf("PING response = %+v", resp)
	}

	// Malformed JSON gets an error response, not a dropped connection.
	if _, err := client.conn.Write([]byte("{not json\n")); err != nil {
		t.Fatalf("writing malformed line: %v", err)
	}
	line, err := client.reader.ReadString('\n')
	if err != nil {
		t.Fatalf("reading error response: %v", err)
	}
	var errResp protocol.Response
	if err := json.Unmarshal([]byte(line), &errResp); err != nil {
		t.Fatalf("decoding error response: %v", err)
	}
	if errResp.Success || !strings.HasPrefix(errResp.Message, "Ошибка обработки запроса") {
		t.Errorf("malformed input response = %+v", errResp)
	}

	// The connection still works afterwards.
	resp = client.roundTrip(t, protocol.NewRequest(protocol.CmdPing, nil))
	if !resp.Success {
		t.Errorf("PING after malformed input = %+v", resp)
	}
}

func TestServerBlankRequestLine(t *testing.T) {
	addr := startTestServer(t)
	client := dialTest(t, addr)

	// A line of spaces and tabs counts as an empty request, same as a
	// bare newline.
	for _, raw := range []string{"\n", "   \n", " \t \n"} {
		if _, err := client.conn.Write([]byte(raw)); err != nil {
			t.Fatalf("writing blank line %q: %v", raw, err)
		}
		line, err := client.reader.ReadString('\n')
		if err != nil {
			t.Fatalf("reading response to %q: %v", raw, err)
		}
		var resp protocol.Response
		if err := json.Unmarshal([]byte(line), &resp); err != nil {
			t.Fatalf("decoding response to %q: %v", raw, err)
		}
		if resp.Success || resp.Message != "Пустой запрос" {
			t.Errorf("blank line %q response = %+v", raw, resp)
		}
	}

	resp := client.roundTrip(t, protocol.NewRequest(protocol.CmdPing, nil))
	if !resp.Success {
		t.Errorf("PING after blank lines = %+v", resp)
	}
}

func TestServerAddAndStatusFlow(t *testing.T) {
	addr := startTestServer(t)
	client := dialTest(t, addr)

	systemJSON, _ := json.Marshal(map[string]any{
		"systemId": "H1",
		"location": "Кухня",
	})
	resp := client.roundTrip(t, protocol.NewRequest(protocol.CmdAddSystem, map[string]any{
		protocol.ParamSystemType: "HomeAlarmSystem",
		protocol.ParamSystemJSON: string(systemJSON),
	}))
	if !resp.Success {
		t.Fatalf("ADD_SYSTEM response = %+v", resp)
	}

	resp = client.roundTrip(t, protocol.NewRequest(protocol.CmdGetStatusReport, map[string]any{
		protocol.ParamIndex: 0,
	}))
	if !resp.Success {
		t.Fatalf("GET_STATUS_REPORT response = %+v", resp)
	}
	report, ok := resp.Data.(map[string]any)
	if !ok {
		t.Fatalf("report data = %T, want object", resp.Data)
	}
	if report["systemId"] != "H1" || report["systemType"] != "HomeAlarmSystem" {
		t.Errorf("report = %v", report)
	}

	resp = client.roundTrip(t, protocol.NewRequest(protocol.CmdGetSystemByID, map[string]any{
		protocol.ParamSystemID: "H9",
	}))
	if resp.Success || resp.Message != "Система с ID H9 не найдена" {
		t.Errorf("missing system response = %+v", resp)
	}
}

func TestServerConcurrentAdds(t *testing.T) {
	addr := startTestServer(t)

	const perClient = 100
	var wg sync.WaitGroup
	errs := make(chan error, 2)

	for clientNo := 0; clientNo < 2; clientNo++ {
		wg.Add(1)
		go func(clientNo int) {
			defer wg.Done()

			conn, err := net.Dial("tcp", addr)
			if err != nil {
				errs <- err
				return
			}
			defer conn.Close()
			reader := bufio.NewReader(conn)
			encoder := json.NewEncoder(conn)

			for i := 0; i < perClient; i++ {
				systemJSON, _ := json.Marshal(map[string]any{
					"systemId": fmt.Sprintf("SYS-%d-%d", clientNo, i),
					"location": "Стенд",
				})
				req := protocol.NewRequest(protocol.CmdAddSystem, map[string]any{
					protocol.ParamSystemType: "CarAlarmSystem",
					protocol.ParamSystemJSON: string(systemJSON),
				})
				if err := encoder.Encode(req); err != nil {
					errs <- err
					return
				}
				line, err := reader.ReadString('\n')
				if err != nil {
					errs <- err
					return
				}
				var resp protocol.Response
				if err := json.Unmarshal([]byte(line), &resp); err != nil {
					errs <- err
					return
				}
				if !resp.Success {
					errs <- fmt.Errorf("add %d/%d failed: %s", clientNo, i, resp.Message)
					return
				}
			}
		}(clientNo)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent client error: %v", err)
	}

	client := dialTest(t, addr)
	resp := client.roundTrip(t, protocol.NewRequest(protocol.CmdGetSystemCount, nil))
	if !resp.Success {
		t.Fatalf("GET_SYSTEM_COUNT response = %+v", resp)
	}
	if count, ok := resp.Data.(float64); !ok || int(count) != 2*perClient {
		t.Errorf("count = %v, want %d", resp.Data, 2*perClient)
	}
}

func TestServerAuditRowsWellFormed(t *testing.T) {
	addr := startTestServer(t)
	client := dialTest(t, addr)

	systemJSON, _ := json.Marshal(map[string]any{"systemId": "L1", "location": "Офис"})
	resp := client.roundTrip(t, protocol.NewRequest(protocol.CmdAddSystem, map[string]any{
		protocol.ParamSystemType: "BiometricLock",
		protocol.ParamSystemJSON: string(systemJSON),
	}))
	if !resp.Success {
		t.Fatalf("ADD_SYSTEM response = %+v", resp)
	}

	resp = client.roundTrip(t, protocol.NewRequest(protocol.CmdGetRecentLogs, map[string]any{
		protocol.ParamLimit: 10,
	}))
	if !resp.Success {
		t.Fatalf("GET_RECENT_LOGS response = %+v", resp)
	}
	rows, ok := resp.Data.([]any)
	if !ok || len(rows) == 0 {
		t.Fatalf("log rows = %v", resp.Data)
	}
	for _, raw := range rows {
		row := raw.(string)
		if got := len(strings.Split(row, ",")); got != 9 {
			t.Errorf("row %q has %d fields, want 9", row, got)
		}
	}
}
