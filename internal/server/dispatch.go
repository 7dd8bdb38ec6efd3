package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avolkov/sentryfleet/internal/audit"
	"github.com/avolkov/sentryfleet/internal/device"
	"github.com/avolkov/sentryfleet/internal/history"
	"github.com/avolkov/sentryfleet/internal/protocol"
	"github.com/avolkov/sentryfleet/internal/registry"
)

// AuditLog is the slice of the audit log the dispatcher needs: command
// lifecycle rows plus the log read-back and interval operations exposed
// over the protocol. *audit.CSVLog is the production implementation.
type AuditLog interface {
	LogSystemEvent(et audit.EventType, detail string)
	Recent(n int) ([]string, error)
	BySystemID(id string, n int) ([]string, error)
	SetLogInterval(seconds int)
}

// HistoryLog is the optional SQLite event history query surface.
// *history.Store is the production implementation; when none is
// configured, GET_EVENT_HISTORY reports the history as unavailable.
type HistoryLog interface {
	History(ctx context.Context, systemID string, limit int) ([]history.Entry, error)
	Recent(ctx context.Context, limit int) ([]history.Entry, error)
}

// historyQueryTimeout bounds one history read on the request path.
const historyQueryTimeout = 3 * time.Second

// Dispatcher maps protocol commands onto the registry controller.
type Dispatcher struct {
	ctrl     *registry.Controller
	auditLog AuditLog
	history  HistoryLog
	logger   Logger
}

// NewDispatcher creates a dispatcher over ctrl and auditLog.
func NewDispatcher(ctrl *registry.Controller, auditLog AuditLog) *Dispatcher {
	return &Dispatcher{ctrl: ctrl, auditLog: auditLog, logger: noopLogger{}}
}

// SetLogger sets the logger for the dispatcher.
func (d *Dispatcher) SetLogger(logger Logger) {
	d.logger = logger
}

// SetHistory enables GET_EVENT_HISTORY over the given store.
func (d *Dispatcher) SetHistory(h HistoryLog) {
	d.history = h
}

// Dispatch executes one request and always returns a response. Every
// request produces a COMMAND_RECEIVED row followed by COMMAND_EXECUTED
// or COMMAND_FAILED.
func (d *Dispatcher) Dispatch(req protocol.Request) protocol.Response {
	if req.Command == "" {
		return protocol.Fail("Пустой запрос")
	}

	d.auditLog.LogSystemEvent(audit.EventCommandReceived, req.Command)
	d.logger.Debug("dispatching command", "command", req.Command)

	resp := d.handle(req)
	if resp.Success {
		d.auditLog.LogSystemEvent(audit.EventCommandExecuted, req.Command)
	} else {
		d.auditLog.LogSystemEvent(audit.EventCommandFailed,
			fmt.Sprintf("%s: %s", req.Command, resp.Message))
		d.logger.Warn("command failed", "command", req.Command, "message", resp.Message)
	}
	return resp
}

func (d *Dispatcher) handle(req protocol.Request) protocol.Response {
	switch req.Command {
	case protocol.CmdPing:
		return protocol.OK("PONG", nil)
	case protocol.CmdGetAllSystems:
		return protocol.OK("Список систем получен", d.ctrl.ListAll())
	case protocol.CmdGetSystem:
		return d.handleGetSystem(req)
	case protocol.CmdGetSystemByID:
		return d.handleGetSystemByID(req)
	case protocol.CmdAddSystem:
		return d.handleAddSystem(req)
	case protocol.CmdRemoveSystem:
		return d.handleRemoveSystem(req)
	case protocol.CmdRemoveSystemByID:
		return d.handleRemoveSystemByID(req)
	case protocol.CmdGetSystemCount:
		return protocol.OK("Количество систем", d.ctrl.Count())
	case protocol.CmdArmSystem:
		return d.handleArmSystem(req)
	case protocol.CmdDisarmSystem:
		return d.handleDisarmSystem(req)
	case protocol.CmdSetSecurityMode:
		return d.handleSetSecurityMode(req)
	case protocol.CmdPerformSelfTest:
		return d.handlePerformSelfTest(req)
	case protocol.CmdSimulateEmergency:
		return d.handleSimulateEmergency(req)
	case protocol.CmdGetStatusReport:
		return d.handleGetStatusReport(req)
	case protocol.CmdCalibrateSensors:
		return d.handleCalibrateSensors(req)
	case protocol.CmdCheckConnectivity:
		return d.handleCheckConnectivity(req)
	case protocol.CmdLoadSystems:
		return d.handleLoadSystems(req)
	case protocol.CmdSetFileName:
		return d.handleSetFileName(req)
	case protocol.CmdGetCurrentFile:
		return protocol.OK("Текущий файл", d.ctrl.FileName())
	case protocol.CmdSaveSystems:
		return d.handleSaveSystems(req)
	case protocol.CmdLogAllState:
		d.ctrl.LogAllSystemsState()
		return protocol.OK("Состояния всех систем залогированы", nil)
	case protocol.CmdGetCSVLogs:
		return d.handleGetCSVLogs(req)
	case protocol.CmdGetRecentLogs:
		return d.handleGetRecentLogs(req)
	case protocol.CmdSetLogInterval:
		return d.handleSetLogInterval(req)
	case protocol.CmdGetEventHistory:
		return d.handleGetEventHistory(req)
	default:
		return protocol.Fail("Неизвестная команда: " + req.Command)
	}
}

func (d *Dispatcher) handleGetSystem(req protocol.Request) protocol.Response {
	index, err := req.IntParam(protocol.ParamIndex)
	if err != nil {
		return protocol.Fail(err.Error())
	}
	sys, err := d.ctrl.GetByIndex(index)
	if err != nil {
		return protocol.Fail(fmt.Sprintf("Система с индексом %d не найдена", index))
	}
	return protocol.OK("Система найдена", sys)
}

func (d *Dispatcher) handleGetSystemByID(req protocol.Request) protocol.Response {
	systemID, err := req.StringParam(protocol.ParamSystemID)
	if err != nil {
		return protocol.Fail(err.Error())
	}
	sys, err := d.ctrl.GetByID(systemID)
	if err != nil {
		return protocol.Fail(fmt.Sprintf("Система с ID %s не найдена", systemID))
	}
	return protocol.OK("Система найдена", sys)
}

func (d *Dispatcher) handleAddSystem(req protocol.Request) protocol.Response {
	systemJSON, jsonErr := req.StringParam(protocol.ParamSystemJSON)
	systemType, typeErr := req.StringParam(protocol.ParamSystemType)
	if jsonErr != nil || typeErr != nil {
		return protocol.Fail("Отсутствуют необходимые параметры")
	}

	sys, err := device.Decode(device.SystemType(systemType), []byte(systemJSON), d.ctrl.Rand())
	if err != nil {
		if errors.Is(err, device.ErrUnknownSystemType) {
			return protocol.Fail("Неизвестный тип системы: " + systemType)
		}
		return protocol.Fail("Ошибка парсинга системы: " + err.Error())
	}

	if err := d.ctrl.Add(sys); err != nil {
		return protocol.Fail(fmt.Sprintf("Система с идентификатором %s уже зарегистрирована",
			sys.Common().SystemID))
	}
	return protocol.OK("Система добавлена", sys)
}

func (d *Dispatcher) handleRemoveSystem(req protocol.Request) protocol.Response {
	index, err := req.IntParam(protocol.ParamIndex)
	if err != nil {
		return protocol.Fail(err.Error())
	}
	if _, err := d.ctrl.RemoveByIndex(index); err != nil {
		return protocol.Fail(fmt.Sprintf("Не удалось удалить систему с индексом %d", index))
	}
	return protocol.OK("Система удалена", nil)
}

func (d *Dispatcher) handleRemoveSystemByID(req protocol.Request) protocol.Response {
	systemID, err := req.StringParam(protocol.ParamSystemID)
	if err != nil {
		return protocol.Fail(err.Error())
	}
	if _, err := d.ctrl.RemoveByID(systemID); err != nil {
		return protocol.Fail("Не удалось удалить систему с ID " + systemID)
	}
	return protocol.OK("Система удалена", nil)
}

func (d *Dispatcher) handleArmSystem(req protocol.Request) protocol.Response {
	index, err := req.IntParam(protocol.ParamIndex)
	if err != nil {
		return protocol.Fail(err.Error())
	}
	if _, err := d.ctrl.Arm(index); err != nil {
		return protocol.Fail("Не удалось поставить систему на охрану")
	}
	return protocol.OK("Система поставлена на охрану", nil)
}

func (d *Dispatcher) handleDisarmSystem(req protocol.Request) protocol.Response {
	index, err := req.IntParam(protocol.ParamIndex)
	if err != nil {
		return protocol.Fail(err.Error())
	}
	if _, err := d.ctrl.Disarm(index); err != nil {
		return protocol.Fail("Не удалось снять систему с охраны")
	}
	return protocol.OK("Система снята с охраны", nil)
}

func (d *Dispatcher) handleSetSecurityMode(req protocol.Request) protocol.Response {
	index, indexErr := req.IntParam(protocol.ParamIndex)
	mode, modeErr := req.StringParam(protocol.ParamMode)
	if indexErr != nil || modeErr != nil {
		return protocol.Fail("Отсутствуют необходимые параметры")
	}
	if err := d.ctrl.SetSecurityMode(index, mode); err != nil {
		return protocol.Fail("Не удалось установить режим безопасности")
	}
	return protocol.OK("Режим безопасности установлен", nil)
}

func (d *Dispatcher) handlePerformSelfTest(req protocol.Request) protocol.Response {
	index, err := req.IntParam(protocol.ParamIndex)
	if err != nil {
		return protocol.Fail(err.Error())
	}
	passed, err := d.ctrl.PerformSelfTest(index)
	if err != nil {
		return protocol.Fail(fmt.Sprintf("Система с индексом %d не найдена", index))
	}
	return protocol.OK("Самодиагностика выполнена", passed)
}

func (d *Dispatcher) handleSimulateEmergency(req protocol.Request) protocol.Response {
	index, err := req.IntParam(protocol.ParamIndex)
	if err != nil {
		return protocol.Fail(err.Error())
	}
	emergency, err := d.ctrl.SimulateEmergency(index)
	if err != nil {
		return protocol.Fail("Не удалось симулировать экстренную ситуацию")
	}
	return protocol.OK("Экстренная ситуация сымитирована", emergency)
}

func (d *Dispatcher) handleGetStatusReport(req protocol.Request) protocol.Response {
	index, err := req.IntParam(protocol.ParamIndex)
	if err != nil {
		return protocol.Fail(err.Error())
	}
	report, err := d.ctrl.StatusReport(index)
	if err != nil {
		return protocol.Fail("Не удалось получить отчет")
	}
	return protocol.OK("Отчет получен", report)
}

func (d *Dispatcher) handleCalibrateSensors(req protocol.Request) protocol.Response {
	index, err := req.IntParam(protocol.ParamIndex)
	if err != nil {
		return protocol.Fail(err.Error())
	}
	if err := d.ctrl.CalibrateSensors(index); err != nil {
		return protocol.Fail("Не удалось откалибровать сенсоры")
	}
	return protocol.OK("Сенсоры откалиброваны", nil)
}

func (d *Dispatcher) handleCheckConnectivity(req protocol.Request) protocol.Response {
	index, err := req.IntParam(protocol.ParamIndex)
	if err != nil {
		return protocol.Fail(err.Error())
	}
	online, err := d.ctrl.CheckConnectivity(index)
	if err != nil {
		return protocol.Fail(fmt.Sprintf("Система с индексом %d не найдена", index))
	}
	return protocol.OK("Проверка подключения выполнена", online)
}

func (d *Dispatcher) handleLoadSystems(req protocol.Request) protocol.Response {
	fileName, err := req.StringParam(protocol.ParamFileName)
	if err != nil {
		return protocol.Fail(err.Error())
	}
	appendMode, err := req.BoolParamDefault(protocol.ParamAppend, false)
	if err != nil {
		return protocol.Fail(err.Error())
	}
	if _, err := d.ctrl.LoadFromFile(fileName, appendMode); err != nil {
		return protocol.Fail("Не удалось загрузить системы из файла")
	}
	return protocol.OK("Системы загружены из файла", d.ctrl.Count())
}

func (d *Dispatcher) handleSetFileName(req protocol.Request) protocol.Response {
	fileName, err := req.StringParam(protocol.ParamFileName)
	if err != nil {
		return protocol.Fail(err.Error())
	}
	d.ctrl.SetFileName(fileName)
	return protocol.OK("Имя файла изменено", nil)
}

func (d *Dispatcher) handleSaveSystems(req protocol.Request) protocol.Response {
	fileName, err := req.StringParam(protocol.ParamFileName)
	if err != nil {
		return protocol.Fail(err.Error())
	}
	if _, err := d.ctrl.SaveToFile(fileName); err != nil {
		return protocol.Fail("Ошибка сохранения: " + err.Error())
	}
	return protocol.OK("Системы сохранены в файл", nil)
}

func (d *Dispatcher) handleGetCSVLogs(req protocol.Request) protocol.Response {
	systemID, err := req.StringParam(protocol.ParamSystemID)
	if err != nil {
		return protocol.Fail(err.Error())
	}
	limit, err := req.IntParamDefault(protocol.ParamLimit, 50)
	if err != nil {
		return protocol.Fail(err.Error())
	}
	logs, err := d.auditLog.BySystemID(systemID, limit)
	if err != nil {
		return protocol.Fail("Не удалось прочитать логи")
	}
	return protocol.OK("Логи получены", logs)
}

func (d *Dispatcher) handleGetRecentLogs(req protocol.Request) protocol.Response {
	limit, err := req.IntParamDefault(protocol.ParamLimit, 100)
	if err != nil {
		return protocol.Fail(err.Error())
	}
	logs, err := d.auditLog.Recent(limit)
	if err != nil {
		return protocol.Fail("Не удалось прочитать логи")
	}
	return protocol.OK("Логи получены", logs)
}

func (d *Dispatcher) handleGetEventHistory(req protocol.Request) protocol.Response {
	if d.history == nil {
		return protocol.Fail("История событий недоступна")
	}
	limit, err := req.IntParamDefault(protocol.ParamLimit, 50)
	if err != nil {
		return protocol.Fail(err.Error())
	}

	ctx, cancel := context.WithTimeout(context.Background(), historyQueryTimeout)
	defer cancel()

	// systemId narrows the query to one system; omitted means
	// fleet-wide.
	var entries []history.Entry
	if _, ok := req.Params[protocol.ParamSystemID]; ok {
		systemID, err := req.StringParam(protocol.ParamSystemID)
		if err != nil {
			return protocol.Fail(err.Error())
		}
		entries, err = d.history.History(ctx, systemID, limit)
		if err != nil {
			return protocol.Fail("Не удалось прочитать историю событий")
		}
	} else {
		entries, err = d.history.Recent(ctx, limit)
		if err != nil {
			return protocol.Fail("Не удалось прочитать историю событий")
		}
	}
	return protocol.OK("История событий получена", entries)
}

func (d *Dispatcher) handleSetLogInterval(req protocol.Request) protocol.Response {
	interval, err := req.IntParam(protocol.ParamInterval)
	if err != nil {
		return protocol.Fail(err.Error())
	}
	d.auditLog.SetLogInterval(interval)
	return protocol.OK("Интервал логирования установлен", nil)
}
