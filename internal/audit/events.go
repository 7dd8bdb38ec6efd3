package audit

// EventType identifies one kind of auditable event.
type EventType string

// System lifecycle events.
const (
	EventSystemAdded   EventType = "SYSTEM_ADDED"
	EventSystemRemoved EventType = "SYSTEM_REMOVED"
	EventSystemLoaded  EventType = "SYSTEM_LOADED"
	EventStateUpdate   EventType = "STATE_UPDATE"
)

// Arming events.
const (
	EventSystemArmed    EventType = "SYSTEM_ARMED"
	EventSystemDisarmed EventType = "SYSTEM_DISARMED"
)

// Diagnostics events.
const (
	EventSelfTestSuccess     EventType = "SELF_TEST_SUCCESS"
	EventSelfTestFailed      EventType = "SELF_TEST_FAILED"
	EventCalibrationComplete EventType = "CALIBRATION_COMPLETE"
	EventConnectivityCheck   EventType = "CONNECTIVITY_CHECK"
)

// Alarm and emergency events.
const (
	EventEmergencySimulated EventType = "EMERGENCY_SIMULATED"
	EventIntrusionDetected  EventType = "INTRUSION_DETECTED"
	EventPanicModeActivated EventType = "PANIC_MODE_ACTIVATED"
	EventImpactDetected     EventType = "IMPACT_DETECTED"
)

// Authentication events.
const (
	EventAuthSuccess EventType = "AUTH_SUCCESS"
	EventAuthFailed  EventType = "AUTH_FAILED"
	EventUserAdded   EventType = "USER_ADDED"
)

// Device events.
const (
	EventDoorLocked    EventType = "DOOR_LOCKED"
	EventDoorUnlocked  EventType = "DOOR_UNLOCKED"
	EventSensorToggled EventType = "SENSOR_TOGGLED"
)

// Configuration events.
const (
	EventConfigChanged EventType = "CONFIG_CHANGED"
	EventModeChanged   EventType = "MODE_CHANGED"
)

// General events.
const (
	EventInfo    EventType = "INFO"
	EventWarning EventType = "WARNING"
	EventError   EventType = "ERROR"
)

// Server and session events.
const (
	EventClientConnected    EventType = "CLIENT_CONNECTED"
	EventClientDisconnected EventType = "CLIENT_DISCONNECTED"
	EventCommandReceived    EventType = "COMMAND_RECEIVED"
	EventCommandExecuted    EventType = "COMMAND_EXECUTED"
	EventCommandFailed      EventType = "COMMAND_FAILED"
	EventFileLoaded         EventType = "FILE_LOADED"
	EventFileSaved          EventType = "FILE_SAVED"
	EventServerStarted      EventType = "SERVER_STARTED"
	EventServerStopped      EventType = "SERVER_STOPPED"
)

// descriptions maps each event type to its fixed human-readable description.
var descriptions = map[EventType]string{
	EventSystemAdded:   "Система добавлена",
	EventSystemRemoved: "Система удалена",
	EventSystemLoaded:  "Система загружена",
	EventStateUpdate:   "Обновление состояния",

	EventSystemArmed:    "Система поставлена на охрану",
	EventSystemDisarmed: "Система снята с охраны",

	EventSelfTestSuccess:     "Самодиагностика успешна",
	EventSelfTestFailed:      "Самодиагностика провалена",
	EventCalibrationComplete: "Калибровка завершена",
	EventConnectivityCheck:   "Проверка подключения",

	EventEmergencySimulated: "Симуляция аварии",
	EventIntrusionDetected:  "Обнаружено вторжение",
	EventPanicModeActivated: "Режим паники активирован",
	EventImpactDetected:     "Обнаружен удар",

	EventAuthSuccess: "Аутентификация успешна",
	EventAuthFailed:  "Аутентификация провалена",
	EventUserAdded:   "Пользователь добавлен",

	EventDoorLocked:    "Дверь заблокирована",
	EventDoorUnlocked:  "Дверь разблокирована",
	EventSensorToggled: "Датчик переключен",

	EventConfigChanged: "Конфигурация изменена",
	EventModeChanged:   "Режим изменен",

	EventInfo:    "Информация",
	EventWarning: "Предупреждение",
	EventError:   "Ошибка",

	EventClientConnected:    "Клиент подключен",
	EventClientDisconnected: "Клиент отключен",
	EventCommandReceived:    "Получена команда",
	EventCommandExecuted:    "Команда выполнена",
	EventCommandFailed:      "Ошибка выполнения команды",
	EventFileLoaded:         "Файл загружен",
	EventFileSaved:          "Файл сохранен",
	EventServerStarted:      "Сервер запущен",
	EventServerStopped:      "Сервер остановлен",
}

// Description returns the fixed human-readable description for the event type.
// Unknown event types return the raw type name.
func (e EventType) Description() string {
	if d, ok := descriptions[e]; ok {
		return d
	}
	return string(e)
}

// AllEventTypes returns every member of the event taxonomy.
func AllEventTypes() []EventType {
	types := make([]EventType, 0, len(descriptions))
	for t := range descriptions {
		types = append(types, t)
	}
	return types
}
