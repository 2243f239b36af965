package commands

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/itohio/godaq/pkg/config"
	"github.com/itohio/godaq/pkg/device"
	"github.com/itohio/godaq/pkg/metrics"
	"github.com/itohio/godaq/pkg/record"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	recordPort        string
	recordMock        bool
	recordRaw         bool
	recordCount       int
	recordOutput      string
	recordMetricsAddr string
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record sessions from the board",
	Long: `Record sessions from the board.

Opens the port, waits for ARDUINO_DAQ_READY, then for each session sends
START and saves the rows to arduino_daq_data_<timestamp>.csv. Unless --raw
is given every recording is cleaned and low-pass filtered afterwards.

Examples:
  daq record -p /dev/ttyACM0
  daq record --mock -n 3 -o recordings
  daq record -p COM3 --metrics-addr :9090`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if recordPort != "" {
			cfg.Serial.Port = recordPort
		}
		if recordOutput != "" {
			cfg.Output.Dir = recordOutput
		}
		cutoff, order := cfg.Filter.CutoffHz, cfg.Filter.Order
		if cmd.Flags().Changed("cutoff") {
			cutoff = filterCutoff
		}
		if cmd.Flags().Changed("order") {
			order = filterOrder
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector())
		m := metrics.New(reg)

		dev, err := openDevice(cfg, m)
		if err != nil {
			return err
		}
		defer dev.Close()

		ctx, cancel := context.WithCancel(ctx)
		defer cancel()
		g, gctx := errgroup.WithContext(ctx)

		if recordMetricsAddr != "" {
			g.Go(func() error {
				return serveMetrics(gctx, recordMetricsAddr, reg)
			})
		}

		g.Go(func() error {
			defer cancel()

			if err := device.WaitReady(gctx, dev.Frames(), cfg.Session.ReadyTimeout); err != nil {
				if !errors.Is(err, device.ErrReadyTimeout) {
					return err
				}
				fmt.Println("Board did not announce itself, continuing anyway...")
			} else {
				fmt.Println("Board is ready!")
			}

			rec := record.New(cfg.Output.Dir, cfg.Session.HostTimeout)
			rec.SetObserver(m)

			for i := 0; i < recordCount; i++ {
				fmt.Printf("Recording session %d/%d for %s...\n", i+1, recordCount, cfg.Session.Duration)
				res, err := record.Acquire(gctx, dev, rec)
				if res != nil {
					fmt.Printf("Saved %d data points to %s\n", res.Rows, res.Path)
				}
				switch {
				case err == nil:
				case errors.Is(err, record.ErrSampleCountMismatch), errors.Is(err, record.ErrTimeout):
					log.Printf("Warning: %v", err)
				default:
					return err
				}
				if res != nil && !recordRaw {
					postProcess(res.Path, cutoff, order)
				}
			}
			return nil
		})

		if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

// openDevice connects to the configured board, or to the simulated one.
func openDevice(cfg *config.Config, m *metrics.Metrics) (device.Device, error) {
	var dev device.Device
	if recordMock {
		mock := device.NewMock(cfg)
		mock.SetObserver(m)
		mock.SetDiagnostics(m)
		dev = mock
	} else {
		serial := device.New(cfg.Serial.Port, cfg.Serial.BaudRate, 0)
		serial.SetObserver(m)
		dev = serial
	}

	if err := dev.Connect(); err != nil {
		if !recordMock {
			fmt.Println("Tips for Linux serial ports:")
			fmt.Println("1. Make sure you have permission to access serial ports.")
			fmt.Println("2. You might need to run: sudo usermod -a -G dialout $USER")
		}
		return nil, err
	}
	fmt.Printf("Connected to %s\n", deviceName(cfg))
	return dev, nil
}

func deviceName(cfg *config.Config) string {
	if recordMock {
		return "simulated board"
	}
	return cfg.Serial.Port
}

// serveMetrics exposes reg on addr until ctx is done.
func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	log.Printf("Serving metrics on %s/metrics", addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server exited: %w", err)
	}
}

func init() {
	recordCmd.Flags().StringVarP(&recordPort, "port", "p", "", "serial port override (e.g., COM3 or /dev/ttyACM0)")
	recordCmd.Flags().BoolVar(&recordMock, "mock", false, "use the simulated board instead of a serial port")
	recordCmd.Flags().BoolVar(&recordRaw, "raw", false, "skip cleaning and filtering")
	recordCmd.Flags().IntVarP(&recordCount, "count", "n", 1, "number of sessions to record")
	recordCmd.Flags().StringVarP(&recordOutput, "output", "o", "", "output directory override")
	recordCmd.Flags().StringVar(&recordMetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	addFilterFlags(recordCmd)
}
