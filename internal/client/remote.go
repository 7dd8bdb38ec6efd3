package client

import (
	"encoding/json"
	"fmt"

	"github.com/avolkov/sentryfleet/internal/device"
	"github.com/avolkov/sentryfleet/internal/protocol"
)

// Remote provides typed operations over a Client connection. It mirrors
// the server's command surface and remembers the last file name it loaded
// so callers can show it without another round trip.
type Remote struct {
	client   *Client
	fileName string
}

// NewRemote wraps an established client connection.
func NewRemote(c *Client) *Remote {
	return &Remote{client: c}
}

// Close closes the underlying connection.
func (r *Remote) Close() error { return r.client.Close() }

// send issues a command and turns an unsuccessful response into an error.
func (r *Remote) send(command string, params map[string]any) (protocol.Response, error) {
	resp, err := r.client.Send(protocol.NewRequest(command, params))
	if err != nil {
		return protocol.Response{}, err
	}
	if !resp.Success {
		return resp, fmt.Errorf("client: %s", resp.Message)
	}
	return resp, nil
}

// Ping checks the connection is alive.
func (r *Remote) Ping() error {
	_, err := r.send(protocol.CmdPing, nil)
	return err
}

// AddSystem registers a device on the server.
func (r *Remote) AddSystem(sys device.System) error {
	body, err := json.Marshal(sys)
	if err != nil {
		return fmt.Errorf("client: encoding system: %w", err)
	}
	_, err = r.send(protocol.CmdAddSystem, map[string]any{
		protocol.ParamSystemJSON: string(body),
		protocol.ParamSystemType: string(sys.Common().SystemType),
	})
	return err
}

// RemoveSystem removes the device at the given position.
func (r *Remote) RemoveSystem(index int) error {
	_, err := r.send(protocol.CmdRemoveSystem, map[string]any{protocol.ParamIndex: index})
	return err
}

// RemoveSystemByID removes the device with the given identifier.
func (r *Remote) RemoveSystemByID(id string) error {
	_, err := r.send(protocol.CmdRemoveSystemByID, map[string]any{protocol.ParamSystemID: id})
	return err
}

// System fetches one device by position.
func (r *Remote) System(index int) (device.System, error) {
	resp, err := r.send(protocol.CmdGetSystem, map[string]any{protocol.ParamIndex: index})
	if err != nil {
		return nil, err
	}
	return decodeSystem(resp.Data)
}

// SystemByID fetches one device by identifier.
func (r *Remote) SystemByID(id string) (device.System, error) {
	resp, err := r.send(protocol.CmdGetSystemByID, map[string]any{protocol.ParamSystemID: id})
	if err != nil {
		return nil, err
	}
	return decodeSystem(resp.Data)
}

// Systems fetches the full device list.
func (r *Remote) Systems() ([]device.System, error) {
	resp, err := r.send(protocol.CmdGetAllSystems, nil)
	if err != nil {
		return nil, err
	}

	items, ok := resp.Data.([]any)
	if !ok {
		if resp.Data == nil {
			return nil, nil
		}
		return nil, fmt.Errorf("client: unexpected system list payload %T", resp.Data)
	}

	systems := make([]device.System, 0, len(items))
	for _, item := range items {
		sys, err := decodeSystem(item)
		if err != nil {
			return nil, err
		}
		systems = append(systems, sys)
	}
	return systems, nil
}

// Count returns the number of registered devices.
func (r *Remote) Count() (int, error) {
	resp, err := r.send(protocol.CmdGetSystemCount, nil)
	if err != nil {
		return 0, err
	}
	n, ok := resp.Data.(float64)
	if !ok {
		return 0, fmt.Errorf("client: unexpected count payload %T", resp.Data)
	}
	return int(n), nil
}

// Arm arms the device at the given position.
func (r *Remote) Arm(index int) error {
	_, err := r.send(protocol.CmdArmSystem, map[string]any{protocol.ParamIndex: index})
	return err
}

// Disarm disarms the device at the given position.
func (r *Remote) Disarm(index int) error {
	_, err := r.send(protocol.CmdDisarmSystem, map[string]any{protocol.ParamIndex: index})
	return err
}

// SetSecurityMode switches the device's security mode.
func (r *Remote) SetSecurityMode(index int, mode string) error {
	_, err := r.send(protocol.CmdSetSecurityMode, map[string]any{
		protocol.ParamIndex: index,
		protocol.ParamMode:  mode,
	})
	return err
}

// PerformSelfTest runs the device self test, returning whether it passed.
func (r *Remote) PerformSelfTest(index int) (bool, error) {
	resp, err := r.send(protocol.CmdPerformSelfTest, map[string]any{protocol.ParamIndex: index})
	if err != nil {
		return false, err
	}
	passed, ok := resp.Data.(bool)
	if !ok {
		return false, fmt.Errorf("client: unexpected self-test payload %T", resp.Data)
	}
	return passed, nil
}

// SimulateEmergency triggers an emergency on the device and returns the
// raw event payload.
func (r *Remote) SimulateEmergency(index int) (map[string]any, error) {
	resp, err := r.send(protocol.CmdSimulateEmergency, map[string]any{protocol.ParamIndex: index})
	if err != nil {
		return nil, err
	}
	return asObject(resp.Data)
}

// StatusReport fetches the device's status report.
func (r *Remote) StatusReport(index int) (map[string]any, error) {
	resp, err := r.send(protocol.CmdGetStatusReport, map[string]any{protocol.ParamIndex: index})
	if err != nil {
		return nil, err
	}
	return asObject(resp.Data)
}

// CalibrateSensors recalibrates the device's sensors.
func (r *Remote) CalibrateSensors(index int) error {
	_, err := r.send(protocol.CmdCalibrateSensors, map[string]any{protocol.ParamIndex: index})
	return err
}

// CheckConnectivity reports whether the device is currently reachable.
func (r *Remote) CheckConnectivity(index int) (bool, error) {
	resp, err := r.send(protocol.CmdCheckConnectivity, map[string]any{protocol.ParamIndex: index})
	if err != nil {
		return false, err
	}
	online, ok := resp.Data.(bool)
	if !ok {
		return false, fmt.Errorf("client: unexpected connectivity payload %T", resp.Data)
	}
	return online, nil
}

// LoadFromFile asks the server to load devices from the named file.
// Returns the number of devices now registered.
func (r *Remote) LoadFromFile(fileName string, appendMode bool) (int, error) {
	resp, err := r.send(protocol.CmdLoadSystems, map[string]any{
		protocol.ParamFileName: fileName,
		protocol.ParamAppend:   appendMode,
	})
	if err != nil {
		return 0, err
	}
	r.fileName = fileName
	n, ok := resp.Data.(float64)
	if !ok {
		return 0, fmt.Errorf("client: unexpected load payload %T", resp.Data)
	}
	return int(n), nil
}

// SaveToFile asks the server to persist devices to the current file.
func (r *Remote) SaveToFile() error {
	_, err := r.send(protocol.CmdSaveSystems, nil)
	return err
}

// SetFileName changes the server's current persistence file.
func (r *Remote) SetFileName(name string) error {
	if _, err := r.send(protocol.CmdSetFileName, map[string]any{protocol.ParamFileName: name}); err != nil {
		return err
	}
	r.fileName = name
	return nil
}

// CurrentFileName fetches the server's current persistence file.
func (r *Remote) CurrentFileName() (string, error) {
	resp, err := r.send(protocol.CmdGetCurrentFile, nil)
	if err != nil {
		return "", err
	}
	name, _ := resp.Data.(string)
	r.fileName = name
	return name, nil
}

// LastFileName returns the file name from the most recent load or rename,
// without a round trip.
func (r *Remote) LastFileName() string { return r.fileName }

// LogAllSystemsState asks the server to write a state row for every device.
func (r *Remote) LogAllSystemsState() error {
	_, err := r.send(protocol.CmdLogAllState, nil)
	return err
}

// SetCSVLogInterval sets the server's periodic state-logging interval.
func (r *Remote) SetCSVLogInterval(seconds int) error {
	_, err := r.send(protocol.CmdSetLogInterval, map[string]any{protocol.ParamInterval: seconds})
	return err
}

// RecentLogs fetches the last n audit rows.
func (r *Remote) RecentLogs(n int) ([]string, error) {
	resp, err := r.send(protocol.CmdGetRecentLogs, map[string]any{protocol.ParamLimit: n})
	if err != nil {
		return nil, err
	}
	return asStrings(resp.Data)
}

// SystemLogs fetches the last n audit rows for one device.
func (r *Remote) SystemLogs(id string, n int) ([]string, error) {
	resp, err := r.send(protocol.CmdGetCSVLogs, map[string]any{
		protocol.ParamSystemID: id,
		protocol.ParamLimit:    n,
	})
	if err != nil {
		return nil, err
	}
	return asStrings(resp.Data)
}

// EventHistory fetches the last n entries from the server's SQLite
// event history. An empty id queries the whole fleet. Each entry comes
// back as the decoded JSON object (id, systemId, eventType,
// description, state, createdAt).
func (r *Remote) EventHistory(id string, n int) ([]map[string]any, error) {
	params := map[string]any{protocol.ParamLimit: n}
	if id != "" {
		params[protocol.ParamSystemID] = id
	}
	resp, err := r.send(protocol.CmdGetEventHistory, params)
	if err != nil {
		return nil, err
	}
	return asObjects(resp.Data)
}

// decodeSystem hydrates a device from a decoded JSON payload using the
// systemType discriminant the server emits on every device body.
func decodeSystem(data any) (device.System, error) {
	obj, err := asObject(data)
	if err != nil {
		return nil, err
	}
	typ, _ := obj["systemType"].(string)
	if typ == "" {
		return nil, fmt.Errorf("client: device payload missing systemType")
	}

	body, err := json.Marshal(obj)
	if err != nil {
		return nil, fmt.Errorf("client: re-encoding device payload: %w", err)
	}
	return device.Decode(device.SystemType(typ), body, nil)
}

func asObject(data any) (map[string]any, error) {
	obj, ok := data.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("client: unexpected payload %T", data)
	}
	return obj, nil
}

func asObjects(data any) ([]map[string]any, error) {
	items, ok := data.([]any)
	if !ok {
		if data == nil {
			return nil, nil
		}
		return nil, fmt.Errorf("client: unexpected history payload %T", data)
	}
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("client: unexpected history entry %T", item)
		}
		out = append(out, obj)
	}
	return out, nil
}

func asStrings(data any) ([]string, error) {
	items, ok := data.([]any)
	if !ok {
		if data == nil {
			return nil, nil
		}
		return nil, fmt.Errorf("client: unexpected log payload %T", data)
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("client: unexpected log entry %T", item)
		}
		out = append(out, s)
	}
	return out, nil
}
