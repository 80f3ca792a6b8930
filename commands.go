package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/term"

	"github.com/luki/smartfarm/internal/api"
	"github.com/luki/smartfarm/internal/config"
	"github.com/luki/smartfarm/internal/device"
	"github.com/luki/smartfarm/internal/logging"
	"github.com/luki/smartfarm/internal/monitor"
	"github.com/luki/smartfarm/internal/pipeline"
	"github.com/luki/smartfarm/internal/store"
	"github.com/luki/smartfarm/internal/viewer"
)

// env is what every command starts from.
type env struct {
	cfg    *config.Config
	logger *slog.Logger
	closer io.Closer
	client *api.Client
}

func setup(stdout bool) *env {
	cfg := config.Load()
	logger, closer := logging.Init(logging.Options{Dir: cfg.LogDir(), Debug: cfg.Debug, Stdout: stdout})
	for _, w := range cfg.Warnings {
		logger.Warn("invalid setting", "warning", w)
	}
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	client := api.New(cfg.APIURL, httpClient, api.FileTokens{Path: cfg.TokenPath()}, logger)
	return &env{cfg: cfg, logger: logger, closer: closer, client: client}
}

// state builds the threshold/filter state from config. An unknown
// DEFAULT_FILTER falls back to fallback.
func (e *env) state(fallback pipeline.Filter) *pipeline.State {
	f, err := pipeline.ParseFilter(e.cfg.DefaultFilter)
	if err != nil {
		e.logger.Warn("ignoring DEFAULT_FILTER", "value", e.cfg.DefaultFilter, "error", err)
		f = fallback
	}
	return pipeline.NewState(e.cfg.Thresholds, f)
}

// devices returns the MQTT controller when a broker is configured and the
// HTTP one otherwise, plus a label and a cleanup func.
func (e *env) devices() (device.Controller, string, func(), error) {
	if e.cfg.MQTTBroker == "" {
		return device.HTTPController{Client: e.client}, "http", func() {}, nil
	}
	mc, err := device.DialMQTT(device.MQTTConfig{
		Broker:   e.cfg.MQTTBroker,
		ClientID: e.cfg.MQTTClientID,
		Username: e.cfg.MQTTUsername,
		Password: e.cfg.MQTTPassword,
		Topic:    e.cfg.MQTTCommandTopic,
		DeviceID: e.cfg.DeviceID,
	}, e.logger)
	if err != nil {
		return nil, "", nil, err
	}
	return mc, "mqtt " + device.FormatTopic(e.cfg.MQTTCommandTopic, e.cfg.DeviceID), mc.Close, nil
}

// ── Dashboards ───────────────────────────────────────────────────────

func runMonitor(ctx context.Context) error {
	e := setup(false)
	defer e.closer.Close()

	devs, label, closeDevs, err := e.devices()
	if err != nil {
		e.logger.Error("device control unavailable", "error", err)
		devs, label, closeDevs = nil, "offline", func() {}
	}
	defer closeDevs()

	ex, err := store.New(e.cfg.ExportDir())
	if err != nil {
		e.logger.Error("export unavailable", "error", err)
		ex = nil
	}

	m := monitor.New(monitor.Options{
		Context:      ctx,
		Source:       e.client,
		Devices:      devs,
		DeviceLabel:  label,
		Exporter:     ex,
		State:        e.state(pipeline.Filter("temperature")),
		PollInterval: e.cfg.PollInterval,
		Logger:       e.logger,
	})

	final, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	if fm, ok := final.(monitor.Model); ok && fm.Unauthorized() {
		fmt.Println("Not signed in or session expired. Run `smartfarm login` first.")
	}
	return nil
}

func runHistory(ctx context.Context) error {
	e := setup(false)
	defer e.closer.Close()

	return viewer.Run(viewer.Options{
		Context:   ctx,
		Source:    e.client,
		ExportDir: e.cfg.ExportDir(),
		State:     pipeline.NewState(e.cfg.Thresholds, pipeline.FilterAll),
		Logger:    e.logger,
	})
}

// ── Account ──────────────────────────────────────────────────────────

func runLogin(ctx context.Context, args []string) error {
	user, pass, err := credentials(args)
	if err != nil {
		return err
	}
	e := setup(false)
	defer e.closer.Close()

	if err := e.client.Login(ctx, user, pass); err != nil {
		return errors.New(api.Describe(err))
	}
	fmt.Println("Signed in as", user)
	return nil
}

func runLogout() error {
	e := setup(false)
	defer e.closer.Close()
	return e.client.Logout()
}

func runRegister(ctx context.Context, args []string) error {
	user, pass, err := credentials(args)
	if err != nil {
		return err
	}
	e := setup(false)
	defer e.closer.Close()

	msg, err := e.client.Register(ctx, user, pass)
	if err != nil {
		return errors.New(api.Describe(err))
	}
	if msg == "" {
		msg = "Account created"
	}
	fmt.Println(msg)
	return nil
}

// credentials takes the username from args and the password from args
// or, when missing, from the terminal without echo.
func credentials(args []string) (string, string, error) {
	if len(args) == 0 {
		return "", "", errors.New("usage: smartfarm login|register <username> [password]")
	}
	if len(args) > 1 {
		return args[0], args[1], nil
	}

	fmt.Fprint(os.Stderr, "Password: ")
	fd := os.Stdin.Fd()
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", "", fmt.Errorf("read password: %w", err)
		}
		return args[0], string(b), nil
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", "", fmt.Errorf("read password: %w", err)
	}
	return args[0], strings.TrimRight(line, "\r\n"), nil
}

// ── One-shot commands ────────────────────────────────────────────────

func actionList() string {
	var names []string
	for _, a := range device.Actions() {
		names = append(names, string(a))
	}
	return strings.Join(names, ", ")
}

func runControl(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: smartfarm control <action>, one of: %s", actionList())
	}
	a, err := device.ParseAction(args[0])
	if err != nil {
		return err
	}

	e := setup(false)
	defer e.closer.Close()

	devs, _, closeDevs, err := e.devices()
	if err != nil {
		return err
	}
	defer closeDevs()

	msg, err := devs.Do(ctx, a)
	if err != nil {
		return fmt.Errorf("action '%s' failed: %s", a, api.Describe(err))
	}
	fmt.Println(msg)
	return nil
}

func runRefresh(ctx context.Context) error {
	e := setup(false)
	defer e.closer.Close()

	if err := e.client.Refresh(ctx); err != nil {
		return errors.New(api.Describe(err))
	}
	readings, err := e.client.Readings(ctx, "")
	if err != nil {
		return errors.New(api.Describe(err))
	}

	fmt.Printf("Sensor data refreshed, %d readings\n", len(readings))
	snap := e.state(pipeline.FilterAll).Snapshot()
	snap.Filter = pipeline.FilterAll
	if text, ok := pipeline.ComputeAlert(readings, snap); ok {
		fmt.Println(text)
	}
	return nil
}

func runExport(ctx context.Context) error {
	e := setup(false)
	defer e.closer.Close()

	readings, err := e.client.Readings(ctx, "")
	if err != nil {
		return errors.New(api.Describe(err))
	}

	ex, err := store.New(e.cfg.ExportDir())
	if err != nil {
		return err
	}
	defer ex.Close()

	now := time.Now()
	if err := ex.Write(readings, e.state(pipeline.FilterAll).Snapshot(), now); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	e.logger.Info("exported readings", "path", ex.Path(now), "rows", len(readings))
	fmt.Printf("Exported %d rows to %s\n", len(readings), ex.Path(now))
	return nil
}
