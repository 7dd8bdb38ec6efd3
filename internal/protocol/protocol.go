// Package protocol defines the wire contract between the manager server
// and its clients: newline-delimited JSON, one request and one response
// per line.
package protocol

// Command names accepted by the server.
const (
	CmdGetAllSystems     = "GET_ALL_SYSTEMS"
	CmdGetSystem         = "GET_SYSTEM"
	CmdGetSystemByID     = "GET_SYSTEM_BY_ID"
	CmdAddSystem         = "ADD_SYSTEM"
	CmdRemoveSystem      = "REMOVE_SYSTEM"
	CmdRemoveSystemByID  = "REMOVE_SYSTEM_BY_ID"
	CmdGetSystemCount    = "GET_SYSTEM_COUNT"
	CmdArmSystem         = "ARM_SYSTEM"
	CmdDisarmSystem      = "DISARM_SYSTEM"
	CmdSetSecurityMode   = "SET_SECURITY_MODE"
	CmdPerformSelfTest   = "PERFORM_SELF_TEST"
	CmdSimulateEmergency = "SIMULATE_EMERGENCY"
	CmdGetStatusReport   = "GET_STATUS_REPORT"
	CmdCalibrateSensors  = "CALIBRATE_SENSORS"
	CmdCheckConnectivity = "CHECK_CONNECTIVITY"
	CmdLoadSystems       = "LOAD_SYSTEMS_FROM_FILE"
	CmdSetFileName       = "SET_FILE_NAME"
	CmdGetCurrentFile    = "GET_CURRENT_FILE_NAME"
	CmdSaveSystems       = "SAVE_SYSTEMS_TO_FILE"
	CmdLogAllState       = "LOG_ALL_SYSTEMS_STATE"
	CmdGetCSVLogs        = "GET_CSV_LOGS"
	CmdGetRecentLogs     = "GET_RECENT_LOGS"
	CmdSetLogInterval    = "SET_CSV_LOG_INTERVAL"
	CmdGetEventHistory   = "GET_EVENT_HISTORY"
	CmdPing              = "PING"
)

// Parameter names carried in Request.Params.
const (
	ParamIndex      = "index"
	ParamSystemID   = "systemId"
	ParamSystemJSON = "systemJson"
	ParamSystemType = "systemType"
	ParamMode       = "mode"
	ParamFileName   = "fileName"
	ParamAppend     = "append"
	ParamLimit      = "limit"
	ParamInterval   = "interval"
	ParamLocation   = "location"
)

// Request is one client command.
type Request struct {
	Command string         `json:"command"`
	Params  map[string]any `json:"params,omitempty"`
}

// Response is the server's reply to one request.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// OK builds a success response.
func OK(message string, data any) Response {
	return Response{Success: true, Message: message, Data: data}
}

// Fail builds an error response.
func Fail(message string) Response {
	return Response{Success: false, Message: message}
}

// NewRequest builds a request with the given parameters. Params may be
// nil for parameterless commands.
func NewRequest(command string, params map[string]any) Request {
	return Request{Command: command, Params: params}
}
