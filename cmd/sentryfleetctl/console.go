package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/avolkov/sentryfleet/internal/client"
	"github.com/avolkov/sentryfleet/internal/device"
)

// consoleHelp lists the interactive commands.
const consoleHelp = `Команды:
  list                       список систем
  count                      количество систем
  add <тип> <id> <место>     добавить систему (home | lock | car)
  remove <номер>             удалить систему по номеру
  removeid <id>              удалить систему по идентификатору
  arm <номер>                поставить на охрану
  disarm <номер>             снять с охраны
  mode <номер> <режим>       режим: Отключено | Дома | Отсутствие
  selftest <номер>           самодиагностика
  emergency <номер>          сымитировать экстренную ситуацию
  report <номер>             отчет о состоянии
  calibrate <номер>          откалибровать сенсоры
  signal <номер>             проверить подключение
  load <файл> [append]       загрузить системы из файла
  save                       сохранить системы в текущий файл
  file [имя]                 показать или сменить текущий файл
  logs [n]                   последние записи журнала
  syslogs <id> [n]           записи журнала по системе
  history [id] [n]           история событий (SQLite)
  loginterval <сек>          интервал записи состояния в CSV
  logstate                   записать состояние всех систем
  ping                       проверить соединение
  help                       эта справка
  exit                       выход`

// typeAliases maps console shorthand to wire discriminants.
var typeAliases = map[string]device.SystemType{
	"home": device.TypeHomeAlarm,
	"lock": device.TypeBiometricLock,
	"car":  device.TypeCarAlarm,
}

// runConsole reads commands from stdin until exit or EOF.
func runConsole(ctx context.Context, remote *client.Remote) error {
	fmt.Println("=== SentryFleet: интерактивный режим ===")
	fmt.Println("Введите help для списка команд.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		select {
		case <-ctx.Done():
			fmt.Println("\nКлиент завершен.")
			return nil
		default:
		}

		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println("\nКлиент завершен.")
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		cmd, args := strings.ToLower(fields[0]), fields[1:]

		if cmd == "exit" || cmd == "quit" {
			fmt.Println("Клиент завершен.")
			return nil
		}
		if err := execute(remote, cmd, args); err != nil {
			fmt.Fprintln(os.Stderr, "Ошибка:", err)
		}
	}
}

// execute dispatches one console command.
func execute(remote *client.Remote, cmd string, args []string) error {
	switch cmd {
	case "help":
		fmt.Println(consoleHelp)
		return nil

	case "list":
		return showState(remote, false)

	case "count":
		count, err := remote.Count()
		if err != nil {
			return err
		}
		fmt.Println("Количество систем:", count)
		return nil

	case "add":
		if len(args) < 3 {
			return fmt.Errorf("использование: add <тип> <id> <место>")
		}
		typ, ok := typeAliases[strings.ToLower(args[0])]
		if !ok {
			return fmt.Errorf("неизвестный тип %q (home | lock | car)", args[0])
		}
		id := args[1]
		location := strings.Join(args[2:], " ")

		var sys device.System
		switch typ {
		case device.TypeHomeAlarm:
			sys = device.NewHomeAlarm(id, location, nil)
		case device.TypeBiometricLock:
			sys = device.NewBiometricLock(id, location, nil)
		case device.TypeCarAlarm:
			sys = device.NewCarAlarm(id, location, nil)
		}
		if err := remote.AddSystem(sys); err != nil {
			return err
		}
		fmt.Println("Система добавлена:", id)
		return nil

	case "remove":
		index, err := indexArg(args)
		if err != nil {
			return err
		}
		if err := remote.RemoveSystem(index); err != nil {
			return err
		}
		fmt.Println("Система удалена")
		return nil

	case "removeid":
		if len(args) != 1 {
			return fmt.Errorf("использование: removeid <id>")
		}
		if err := remote.RemoveSystemByID(args[0]); err != nil {
			return err
		}
		fmt.Println("Система удалена")
		return nil

	case "arm":
		index, err := indexArg(args)
		if err != nil {
			return err
		}
		if err := remote.Arm(index); err != nil {
			return err
		}
		fmt.Println("Система поставлена на охрану")
		return nil

	case "disarm":
		index, err := indexArg(args)
		if err != nil {
			return err
		}
		if err := remote.Disarm(index); err != nil {
			return err
		}
		fmt.Println("Система снята с охраны")
		return nil

	case "mode":
		if len(args) < 2 {
			return fmt.Errorf("использование: mode <номер> <режим>")
		}
		index, err := parseIndex(args[0])
		if err != nil {
			return err
		}
		if err := remote.SetSecurityMode(index, args[1]); err != nil {
			return err
		}
		fmt.Println("Режим безопасности установлен:", args[1])
		return nil

	case "selftest":
		index, err := indexArg(args)
		if err != nil {
			return err
		}
		passed, err := remote.PerformSelfTest(index)
		if err != nil {
			return err
		}
		if passed {
			fmt.Println("Самодиагностика пройдена")
		} else {
			fmt.Println("Самодиагностика не пройдена")
		}
		return nil

	case "emergency":
		index, err := indexArg(args)
		if err != nil {
			return err
		}
		event, err := remote.SimulateEmergency(index)
		if err != nil {
			return err
		}
		fmt.Printf("Экстренная ситуация: %v (%v)\n", event["description"], event["systemId"])
		return nil

	case "report":
		index, err := indexArg(args)
		if err != nil {
			return err
		}
		report, err := remote.StatusReport(index)
		if err != nil {
			return err
		}
		printReport(report)
		return nil

	case "calibrate":
		index, err := indexArg(args)
		if err != nil {
			return err
		}
		if err := remote.CalibrateSensors(index); err != nil {
			return err
		}
		fmt.Println("Сенсоры откалиброваны")
		return nil

	case "signal":
		index, err := indexArg(args)
		if err != nil {
			return err
		}
		online, err := remote.CheckConnectivity(index)
		if err != nil {
			return err
		}
		if online {
			fmt.Println("Система на связи")
		} else {
			fmt.Println("Система не отвечает")
		}
		return nil

	case "load":
		if len(args) < 1 {
			return fmt.Errorf("использование: load <файл> [append]")
		}
		appendMode := len(args) > 1 && strings.EqualFold(args[1], "append")
		count, err := remote.LoadFromFile(args[0], appendMode)
		if err != nil {
			return err
		}
		fmt.Println("Системы загружены. Всего:", count)
		return nil

	case "save":
		if err := remote.SaveToFile(); err != nil {
			return err
		}
		fmt.Println("Системы сохранены в файл")
		return nil

	case "file":
		if len(args) == 0 {
			name, err := remote.CurrentFileName()
			if err != nil {
				return err
			}
			fmt.Println("Текущий файл:", name)
			return nil
		}
		if err := remote.SetFileName(args[0]); err != nil {
			return err
		}
		fmt.Println("Текущий файл изменен на:", args[0])
		return nil

	case "logs":
		n := 20
		if len(args) > 0 {
			parsed, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("число записей должно быть числом")
			}
			n = parsed
		}
		rows, err := remote.RecentLogs(n)
		if err != nil {
			return err
		}
		printRows(rows)
		return nil

	case "syslogs":
		if len(args) < 1 {
			return fmt.Errorf("использование: syslogs <id> [n]")
		}
		n := 20
		if len(args) > 1 {
			parsed, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("число записей должно быть числом")
			}
			n = parsed
		}
		rows, err := remote.SystemLogs(args[0], n)
		if err != nil {
			return err
		}
		printRows(rows)
		return nil

	case "history":
		id := ""
		n := 20
		rest := args
		// A leading non-numeric argument is the system id.
		if len(rest) > 0 {
			if _, err := strconv.Atoi(rest[0]); err != nil {
				id = rest[0]
				rest = rest[1:]
			}
		}
		if len(rest) > 0 {
			parsed, err := strconv.Atoi(rest[0])
			if err != nil {
				return fmt.Errorf("число записей должно быть числом")
			}
			n = parsed
		}
		entries, err := remote.EventHistory(id, n)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("История пуста")
			return nil
		}
		for _, e := range entries {
			fmt.Printf("%v  %v  %v  %v\n",
				e["createdAt"], e["systemId"], e["eventType"], e["description"])
		}
		return nil

	case "loginterval":
		if len(args) != 1 {
			return fmt.Errorf("использование: loginterval <секунды>")
		}
		seconds, err := strconv.Atoi(args[0])
		if err != nil || seconds <= 0 {
			return fmt.Errorf("интервал должен быть положительным числом")
		}
		if err := remote.SetCSVLogInterval(seconds); err != nil {
			return err
		}
		fmt.Println("Интервал логирования установлен:", seconds, "сек.")
		return nil

	case "logstate":
		if err := remote.LogAllSystemsState(); err != nil {
			return err
		}
		fmt.Println("Состояния всех систем залогированы")
		return nil

	case "ping":
		if err := remote.Ping(); err != nil {
			return err
		}
		fmt.Println("PONG")
		return nil

	default:
		return fmt.Errorf("неизвестная команда %q, введите help", cmd)
	}
}

func indexArg(args []string) (int, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("требуется номер системы")
	}
	return parseIndex(args[0])
}

// parseIndex converts a 1-based console position to a 0-based index.
func parseIndex(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("номер системы должен быть положительным числом")
	}
	return n - 1, nil
}

// describeSystem renders one device for the list view.
func describeSystem(sys device.System) string {
	b := sys.Common()
	armed := "снята с охраны"
	if b.IsArmed {
		armed = "на охране"
	}
	head := fmt.Sprintf("%s [%s] %s, режим: %s, %s, батарея: %d%%, сигнал: %d/5",
		b.SystemID, b.SystemType, b.Location, b.SecurityMode, armed,
		b.BatteryLevel, b.SignalStrength)

	switch s := sys.(type) {
	case *device.HomeAlarm:
		return fmt.Sprintf("%s, чувствительность: %d, звук: %s", head, s.SensitivityLevel, s.AlarmSound)
	case *device.BiometricLock:
		return fmt.Sprintf("%s, замок: %s, пользователей: %d", head, s.LockStatus, len(s.AuthorizedUsers))
	case *device.CarAlarm:
		return fmt.Sprintf("%s, громкость: %s", head, s.AlarmVolume)
	default:
		return head
	}
}

// printReport renders a status report map with stable key order.
func printReport(report map[string]any) {
	keys := make([]string, 0, len(report))
	for k := range report {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Println("=== Отчет о состоянии ===")
	for _, k := range keys {
		fmt.Printf("  %s: %v\n", k, report[k])
	}
}

func printRows(rows []string) {
	if len(rows) == 0 {
		fmt.Println("Журнал пуст")
		return
	}
	for _, row := range rows {
		fmt.Println(row)
	}
}
