package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	cmd := "monitor"
	var args []string
	if len(os.Args) > 1 {
		cmd, args = os.Args[1], os.Args[2:]
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch cmd {
	case "monitor":
		err = runMonitor(ctx)
	case "history":
		err = runHistory(ctx)
	case "login":
		err = runLogin(ctx, args)
	case "logout":
		err = runLogout()
	case "register":
		err = runRegister(ctx, args)
	case "control":
		err = runControl(ctx, args)
	case "refresh":
		err = runRefresh(ctx)
	case "export":
		err = runExport(ctx)
	case "sim":
		err = runSim(ctx, args)
	case "help", "-h", "--help":
		printHelp()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printHelp()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func printHelp() {
	fmt.Println("Usage: smartfarm [command]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  monitor                live dashboard (default)")
	fmt.Println("  history                history page, every reading with breaches highlighted")
	fmt.Println("  login <user> [pass]    sign in and remember the token")
	fmt.Println("  logout                 forget the stored token")
	fmt.Println("  register <user> [pass] create an account")
	fmt.Println("  control <action>       " + actionList())
	fmt.Println("  refresh                ask the backend to pull fresh sensor data")
	fmt.Println("  export                 append the current readings to today's CSV export")
	fmt.Println("  sim [seed-rows]        run the development backend")
	fmt.Println()
	fmt.Println("Settings come from the environment or a .env file:")
	fmt.Println("  SMARTFARM_API, SMARTFARM_HOME, POLL_INTERVAL, HTTP_TIMEOUT, DEFAULT_FILTER,")
	fmt.Println("  THRESHOLD_TEMPERATURE, THRESHOLD_HUMIDITY, THRESHOLD_CO2, THRESHOLD_LIGHT,")
	fmt.Println("  MQTT_BROKER, MQTT_CLIENT_ID, MQTT_COMMAND_TOPIC, DEVICE_ID, SIM_ADDR, SIM_SECRET")
}
