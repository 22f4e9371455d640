// obd.bridge relays OBD-II diagnostic requests from a UDP client to a
// vehicle ECU through an ELM327-style serial interpreter, one request at a
// time, and relays reshaped replies back.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/obd.bridge/internal/api"
	"github.com/banshee-data/obd.bridge/internal/bridge"
	"github.com/banshee-data/obd.bridge/internal/config"
	"github.com/banshee-data/obd.bridge/internal/db"
	"github.com/banshee-data/obd.bridge/internal/elm"
	"github.com/banshee-data/obd.bridge/internal/serialio"
	"github.com/banshee-data/obd.bridge/internal/tracelog"
	"github.com/banshee-data/obd.bridge/internal/version"
)

var (
	configPath  = flag.String("config", "", "Path to YAML config file")
	udpPort     = flag.Int("udp-port", 0, "UDP port to serve diagnostic requests on (overrides config)")
	serialPort  = flag.String("serial-port", "", "Serial device of the interpreter link (overrides config)")
	baudRate    = flag.Int("baud", 0, "Serial baud rate (overrides config)")
	adminListen = flag.String("admin-listen", "", "Listen address for the admin HTTP server (overrides config)")
	devMode     = flag.Bool("dev", false, "Use the built-in interpreter emulator instead of real hardware")
	noProbe     = flag.Bool("no-probe", false, "Skip the interface identification sequence at startup")
)

func main() {
	flag.Parse()
	log.Printf("obd.bridge %s", version.String())

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if *udpPort != 0 {
		cfg.UDPPort = *udpPort
	}
	if *serialPort != "" {
		cfg.SerialPort = *serialPort
	}
	if *baudRate != 0 {
		cfg.SerialMode.BaudRate = *baudRate
	}
	if *adminListen != "" {
		cfg.AdminListen = *adminListen
	}
	if *noProbe {
		cfg.Probe = false
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	// The transcript log lives for the whole process; everything the bridge
	// does on the wire ends up in it.
	trace := tracelog.Discard()
	if cfg.TraceLogPath != "" {
		trace, err = tracelog.Open(cfg.TraceLogPath)
		if err != nil {
			log.Fatalf("failed to open trace log: %v", err)
		}
	}
	defer trace.Close()

	var port serialio.Porter
	if *devMode {
		port = serialio.NewInterpreterPort(serialio.DefaultScripts())
		log.Print("dev mode: using emulated interpreter")
	} else {
		port, err = serialio.OpenPort(cfg.SerialPort, cfg.SerialMode)
		if err != nil {
			log.Fatalf("failed to open serial port %s: %v", cfg.SerialPort, err)
		}
	}
	channel, err := serialio.NewChannel(port)
	if err != nil {
		log.Fatalf("failed to configure serial channel: %v", err)
	}
	defer channel.Close()

	database, err := db.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer database.Close()
	if err := database.MigrateUp(cfg.MigrationsDir); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	conn, err := net.ListenUDP("udp", &net.UDPAddr{Port: cfg.UDPPort})
	if err != nil {
		log.Fatalf("failed to bind UDP port %d: %v", cfg.UDPPort, err)
	}
	defer conn.Close()
	log.Printf("serving diagnostic requests on %s", conn.LocalAddr())

	framer := elm.NewFramer(channel, elm.FramerOptions{
		MaxReplyLen: cfg.MaxReplyLen,
		Deadline:    cfg.ReplyTimeout(),
	})
	b := bridge.New(conn, channel, framer, database, trace, cfg.MaxCommandLen)
	defer b.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Probe {
		if err := b.Probe(ctx); err != nil {
			log.Fatalf("interface check failed: %v", err)
		}
		log.Print("interface check complete")
	}

	var wg sync.WaitGroup

	// run the relay loop; a transport failure here means the environment is
	// broken and the process cannot continue meaningfully
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := b.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Fatalf("bridge terminated: %v", err)
		}
		log.Print("bridge loop stopped")
	}()

	// admin/debug HTTP server, optional
	if cfg.AdminListen != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()

			mux := http.NewServeMux()
			database.AttachAdminRoutes(mux)

			apiServer := api.NewServer(b, database)
			apiServer.AttachAdminRoutes(mux)
			mux.Handle("/api/", http.StripPrefix("/api", apiServer.ServeMux()))

			server := &http.Server{
				Addr:    cfg.AdminListen,
				Handler: mux,
			}

			go func() {
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatalf("failed to start admin server: %v", err)
				}
			}()
			log.Printf("admin server listening on %s", cfg.AdminListen)

			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				log.Printf("admin server shutdown error: %v", err)
			}
			log.Print("admin server stopped")
		}()
	}

	wg.Wait()
	log.Print("shutdown complete")
}
