// SentryFleet command line client.
//
// Talks to a running sentryfleetd over its line-delimited JSON protocol.
// With no arguments it starts an interactive console; flags run one-shot
// or periodic modes and exit.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/avolkov/sentryfleet/internal/client"
)

var version = "dev" // set at build time via ldflags

const defaultAddr = "127.0.0.1:5000"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "Ошибка:", err)
		os.Exit(1)
	}
}

type options struct {
	addr        string
	loadFile    string
	state       bool
	continuous  int
	logEvery    int
	interactive bool
	replaceFile string
}

func parseFlags(args []string) (options, error) {
	var opts options
	fs := flag.NewFlagSet("sentryfleetctl", flag.ContinueOnError)
	fs.Usage = func() { printHelp(fs) }

	fs.StringVar(&opts.addr, "addr", envOr("SENTRYFLEET_ADDR", defaultAddr), "адрес сервера (host:port)")
	fs.StringVar(&opts.loadFile, "f", "", "загрузить системы из файла")
	fs.StringVar(&opts.loadFile, "file", "", "загрузить системы из файла")
	fs.BoolVar(&opts.state, "s", false, "разовый вывод состояния систем")
	fs.BoolVar(&opts.state, "state", false, "разовый вывод состояния систем")
	fs.IntVar(&opts.continuous, "c", 0, "циклический вывод состояния с интервалом в секундах")
	fs.IntVar(&opts.continuous, "continuous", 0, "циклический вывод состояния с интервалом в секундах")
	fs.IntVar(&opts.logEvery, "l", 0, "периодическая запись состояния в CSV с интервалом в секундах")
	fs.IntVar(&opts.logEvery, "log", 0, "периодическая запись состояния в CSV с интервалом в секундах")
	fs.BoolVar(&opts.interactive, "i", false, "интерактивный режим")
	fs.BoolVar(&opts.interactive, "interactive", false, "интерактивный режим")
	fs.StringVar(&opts.replaceFile, "r", "", "сменить текущий файл данных")
	fs.StringVar(&opts.replaceFile, "replace", "", "сменить текущий файл данных")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	return opts, nil
}

func printHelp(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "SentryFleet client %s\n\n", version)
	fmt.Fprintln(fs.Output(), "Использование: sentryfleetctl [ключи]")
	fmt.Fprintln(fs.Output(), "Без ключей запускается интерактивный режим.")
	fmt.Fprintln(fs.Output(), "")
	fs.PrintDefaults()
}

func run(ctx context.Context, args []string) error {
	opts, err := parseFlags(args)
	if err != nil {
		if err == flag.ErrHelp {
			return nil
		}
		return err
	}

	c, err := client.Dial(opts.addr)
	if err != nil {
		return fmt.Errorf("не удалось подключиться к серверу %s: %w", opts.addr, err)
	}
	defer c.Close()
	fmt.Println("Подключено к серверу", opts.addr)

	remote := client.NewRemote(c)

	ranAction := false

	if opts.loadFile != "" {
		ranAction = true
		if _, err := remote.LoadFromFile(opts.loadFile, false); err != nil {
			fmt.Fprintln(os.Stderr, "Ошибка загрузки файла:", err)
		} else {
			fmt.Println("Системы успешно загружены из файла:", opts.loadFile)
		}
	}

	if opts.replaceFile != "" {
		ranAction = true
		if err := remote.SetFileName(opts.replaceFile); err != nil {
			fmt.Fprintln(os.Stderr, "Ошибка смены файла:", err)
		} else {
			fmt.Println("Текущий файл изменен на:", opts.replaceFile)
		}
	}

	switch {
	case opts.state:
		return showState(remote, true)
	case opts.continuous > 0:
		return monitorLoop(ctx, remote, opts.continuous)
	case opts.logEvery > 0:
		return csvLogLoop(ctx, remote, opts.logEvery)
	case opts.interactive:
		return runConsole(ctx, remote)
	case ranAction:
		// Mirror the one-shot modes: show the resulting state and exit.
		return showState(remote, false)
	default:
		return runConsole(ctx, remote)
	}
}

// showState prints the registered systems. When refresh is set the
// server's current file is reloaded first, so the output reflects disk.
func showState(remote *client.Remote, refresh bool) error {
	if refresh {
		current, err := remote.CurrentFileName()
		if err != nil {
			return err
		}
		if current == "" {
			return fmt.Errorf("файл не установлен на сервере")
		}
		if _, err := remote.LoadFromFile(current, false); err != nil {
			fmt.Fprintln(os.Stderr, "Ошибка загрузки файла:", err)
		}
	}

	systems, err := remote.Systems()
	if err != nil {
		return err
	}
	fileName, err := remote.CurrentFileName()
	if err != nil {
		return err
	}

	fmt.Println("=== Состояние систем безопасности ===")
	fmt.Println("Файл данных:", fileName)
	if len(systems) == 0 {
		fmt.Println("Нет зарегистрированных систем")
		return nil
	}
	for i, sys := range systems {
		fmt.Printf("%d. %s\n", i+1, describeSystem(sys))
	}
	return nil
}

// monitorLoop prints the fleet state every interval until interrupted.
func monitorLoop(ctx context.Context, remote *client.Remote, interval int) error {
	fmt.Printf("Непрерывный мониторинг запущен. Интервал: %d сек.\n", interval)
	fmt.Println("Нажмите Ctrl+C для остановки.")

	ticker := time.NewTicker(time.Duration(interval) * time.Second)
	defer ticker.Stop()

	for {
		fmt.Println("\n========================================")
		fmt.Println("Время:", time.Now().Format("2006-01-02 15:04:05"))
		if err := showState(remote, false); err != nil {
			return err
		}
		fmt.Println("========================================")

		select {
		case <-ctx.Done():
			fmt.Println("\nМониторинг остановлен.")
			return nil
		case <-ticker.C:
		}
	}
}

// csvLogLoop sets the server's CSV interval and asks it to snapshot all
// system state every interval until interrupted.
func csvLogLoop(ctx context.Context, remote *client.Remote, interval int) error {
	if err := remote.SetCSVLogInterval(interval); err != nil {
		return fmt.Errorf("не удалось установить интервал: %w", err)
	}

	fmt.Printf("Логирование в CSV запущено. Интервал: %d сек.\n", interval)
	fmt.Println("Нажмите Ctrl+C для остановки.")

	ticker := time.NewTicker(time.Duration(interval) * time.Second)
	defer ticker.Stop()

	for {
		if err := remote.LogAllSystemsState(); err != nil {
			return err
		}
		count, err := remote.Count()
		if err != nil {
			return err
		}
		fmt.Printf("[%s] Записано %d систем в CSV\n", time.Now().Format("15:04:05"), count)

		select {
		case <-ctx.Done():
			fmt.Println("\nЛогирование остановлено.")
			return nil
		case <-ticker.C:
		}
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
