package cmd

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-openapi/strfmt"
	"github.com/go-openapi/swag"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jake-scott/raki/internal/pkg/audit"
	"github.com/jake-scott/raki/internal/pkg/handlers"
	"github.com/jake-scott/raki/internal/pkg/logging"
	"github.com/jake-scott/raki/internal/pkg/manager"
	"github.com/jake-scott/raki/internal/pkg/models"
	"github.com/jake-scott/raki/internal/pkg/mqttbridge"
	"github.com/jake-scott/raki/internal/pkg/relay"
)

var _serverCmdOpts struct {
	address         string
	tlsCertPath     string
	tlsKeyPath      string
	gracefulTimeout time.Duration
	readTimeout     time.Duration
	writeTimeout    time.Duration
	gpioTimeout     time.Duration
	corsOrigins     []string
	logRequests     bool
	mqttBroker      string
	mqttClientID    string
	mqttUsername    string
	mqttPassword    string
	mqttPrefix      string
	mqttQoS         uint8
	auditDB         string
}

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the relay REST server",

	RunE: func(cmd *cobra.Command, args []string) error {
		if err := doServer(); err != nil {
			return err
		}

		return nil
	},

	PreRunE: func(cmd *cobra.Command, args []string) error {
		if viper.IsSet("http.tls-cert") || viper.IsSet("http.tls-key") {
			return checkRequiredFlags("http.tls-cert", "http.tls-key")
		}

		return nil
	},
}

// relayConfig is one entry of the relays list in the config file
type relayConfig struct {
	ID             string `mapstructure:"id"`
	Kind           string `mapstructure:"kind"`
	manager.Config `mapstructure:",squash"`
}

func init() {
	serverCmd.Flags().StringVar(&_serverCmdOpts.address, "address", ":5000", "address to listen on")
	serverCmd.Flags().StringVar(&_serverCmdOpts.tlsCertPath, "tls-cert", "", "TLS certificate file")
	serverCmd.Flags().StringVar(&_serverCmdOpts.tlsKeyPath, "tls-key", "", "TLS key file")
	serverCmd.Flags().DurationVar(&_serverCmdOpts.gracefulTimeout, "graceful-timeout", time.Second*15, "duration to wait for server to finish, eg. 1m or 10s")
	serverCmd.Flags().DurationVar(&_serverCmdOpts.readTimeout, "read-timeout", time.Second*15, "duration to wait for request read, eg. 1m or 10s")
	serverCmd.Flags().DurationVar(&_serverCmdOpts.writeTimeout, "write-timeout", time.Second*60, "duration to wait for request write, eg. 1m or 10s")
	serverCmd.Flags().DurationVar(&_serverCmdOpts.gpioTimeout, "gpio-timeout", relay.DefaultWriteTimeout, "maximum duration of one GPIO write, eg. 500ms")
	serverCmd.Flags().StringSliceVar(&_serverCmdOpts.corsOrigins, "cors-origin", nil, "origin allowed to call the API from a browser, may be repeated")
	serverCmd.Flags().BoolVar(&_serverCmdOpts.logRequests, "log-requests", false, "log requests and responses (only in debug mode)")
	serverCmd.Flags().StringVar(&_serverCmdOpts.mqttBroker, "mqtt-broker", "", "MQTT broker URL, eg. tcp://localhost:1883 (bridge off when empty)")
	serverCmd.Flags().StringVar(&_serverCmdOpts.mqttClientID, "mqtt-client-id", "", "MQTT client ID (default raki-<hostname>)")
	serverCmd.Flags().StringVar(&_serverCmdOpts.mqttUsername, "mqtt-username", "", "MQTT broker username")
	serverCmd.Flags().StringVar(&_serverCmdOpts.mqttPassword, "mqtt-password", "", "MQTT broker password")
	serverCmd.Flags().StringVar(&_serverCmdOpts.mqttPrefix, "mqtt-prefix", mqttbridge.DefaultTopicPrefix, "root of the MQTT topics")
	serverCmd.Flags().Uint8Var(&_serverCmdOpts.mqttQoS, "mqtt-qos", 1, "MQTT quality of service, 0-2")
	serverCmd.Flags().StringVar(&_serverCmdOpts.auditDB, "audit-db", "", "sqlite file for the command journal (journal off when empty)")

	errPanic(viper.GetViper().BindPFlag("http.address", serverCmd.Flags().Lookup("address")))
	errPanic(viper.GetViper().BindPFlag("http.tls-cert", serverCmd.Flags().Lookup("tls-cert")))
	errPanic(viper.GetViper().BindPFlag("http.tls-key", serverCmd.Flags().Lookup("tls-key")))
	errPanic(viper.GetViper().BindPFlag("http.graceful-timeout", serverCmd.Flags().Lookup("graceful-timeout")))
	errPanic(viper.GetViper().BindPFlag("http.read-timeout", serverCmd.Flags().Lookup("read-timeout")))
	errPanic(viper.GetViper().BindPFlag("http.write-timeout", serverCmd.Flags().Lookup("write-timeout")))
	errPanic(viper.GetViper().BindPFlag("http.cors-origins", serverCmd.Flags().Lookup("cors-origin")))
	errPanic(viper.GetViper().BindPFlag("gpio.write-timeout", serverCmd.Flags().Lookup("gpio-timeout")))
	errPanic(viper.GetViper().BindPFlag("logging.log-requests", serverCmd.Flags().Lookup("log-requests")))
	errPanic(viper.GetViper().BindPFlag("mqtt.broker", serverCmd.Flags().Lookup("mqtt-broker")))
	errPanic(viper.GetViper().BindPFlag("mqtt.client-id", serverCmd.Flags().Lookup("mqtt-client-id")))
	errPanic(viper.GetViper().BindPFlag("mqtt.username", serverCmd.Flags().Lookup("mqtt-username")))
	errPanic(viper.GetViper().BindPFlag("mqtt.password", serverCmd.Flags().Lookup("mqtt-password")))
	errPanic(viper.GetViper().BindPFlag("mqtt.topic-prefix", serverCmd.Flags().Lookup("mqtt-prefix")))
	errPanic(viper.GetViper().BindPFlag("mqtt.qos", serverCmd.Flags().Lookup("mqtt-qos")))
	errPanic(viper.GetViper().BindPFlag("audit.db", serverCmd.Flags().Lookup("audit-db")))

	rootCmd.AddCommand(serverCmd)
}

// createConfiguredRelays creates the relays listed under `relays`
func createConfiguredRelays(ctx context.Context, mgr *manager.Manager) error {
	var relays []relayConfig
	if err := viper.UnmarshalKey("relays", &relays); err != nil {
		return errors.Wrap(err, "reading relays from config")
	}

	for i, rc := range relays {
		if err := validateRelayConfig(rc); err != nil {
			return errors.Wrapf(manager.ErrInvalidConfig, "relay %d (%s): %s", i, rc.ID, err)
		}

		ok, kind := relay.ParseKind(rc.Kind)
		if !ok {
			return errors.Wrapf(manager.ErrInvalidConfig, "relay %d (%s): unknown kind [%s]", i, rc.ID, rc.Kind)
		}

		if _, err := mgr.Create(ctx, rc.ID, kind, rc.Config); err != nil {
			return errors.Wrapf(err, "relay %d (%s)", i, rc.ID)
		}
	}

	return nil
}

// validateRelayConfig applies the checks a REST create gets
func validateRelayConfig(rc relayConfig) error {
	req := models.RelayCreate{
		ID:           swag.String(rc.ID),
		Kind:         swag.String(strings.ToLower(strings.TrimSpace(rc.Kind))),
		InitialState: strings.ToLower(rc.InitialState),
	}
	if rc.Pin != nil {
		req.Pin = swag.Int64(int64(*rc.Pin))
	}

	return req.Validate(strfmt.Default)
}

func startBridge(ctx context.Context, mgr *manager.Manager) (*mqttbridge.Bridge, error) {
	broker := viper.GetString("mqtt.broker")
	prefix := viper.GetString("mqtt.topic-prefix")

	qos := viper.GetUint("mqtt.qos")
	if qos > 2 {
		return nil, errors.Errorf("bad mqtt qos %d", qos)
	}

	clientID := viper.GetString("mqtt.client-id")
	if clientID == "" {
		host, _ := os.Hostname()
		clientID = "raki-" + host
	}

	topics := mqttbridge.Topics{Prefix: prefix}
	client := mqttbridge.NewLiveClient(broker, clientID).WithWill(topics.Status(), "offline", byte(qos))
	if username := viper.GetString("mqtt.username"); username != "" {
		client = client.WithCredentials(username, viper.GetString("mqtt.password"))
	}

	connectCtx, cancel := context.WithTimeout(ctx, time.Second*30)
	defer cancel()
	if err := client.Connect(connectCtx); err != nil {
		return nil, err
	}

	bridge := mqttbridge.New(client, mgr, mqttbridge.Options{TopicPrefix: prefix, QoS: byte(qos)})
	if err := bridge.Start(ctx); err != nil {
		client.Disconnect()
		return nil, err
	}

	return bridge, nil
}

func doServer() error {
	wait := viper.GetDuration("http.graceful-timeout")
	address := viper.GetString("http.address")
	certFile := viper.GetString("http.tls-cert")
	keyFile := viper.GetString("http.tls-key")

	var logRequests bool
	if viper.GetBool("logging.log-requests") {
		if logrus.IsLevelEnabled(logrus.DebugLevel) {
			logRequests = true
		} else {
			logging.Logger(nil).Warn("log-requests ignored when not in debug mode")
		}
	}

	ctx := logging.WithSource(context.Background(), "startup")

	mgr := manager.New()
	mgr.SetWriteTimeout(viper.GetDuration("gpio.write-timeout"))

	if path := viper.GetString("audit.db"); path != "" {
		journal, err := audit.Open(ctx, path)
		if err != nil {
			return err
		}
		defer journal.Close()

		mgr.AddObserver(journal)
		logging.Logger(ctx).Infof("journaling relay events to %s", path)
	}

	if err := createConfiguredRelays(ctx, mgr); err != nil {
		if cerr := mgr.Close(ctx); cerr != nil {
			logging.Logger(ctx).WithError(cerr).Error("releasing relays")
		}
		return err
	}

	var bridge *mqttbridge.Bridge
	if viper.GetString("mqtt.broker") != "" {
		var err error
		if bridge, err = startBridge(ctx, mgr); err != nil {
			if cerr := mgr.Close(ctx); cerr != nil {
				logging.Logger(ctx).WithError(cerr).Error("releasing relays")
			}
			return errors.Wrap(err, "starting mqtt bridge")
		}
	}

	r := handlers.NewRouter(mgr, handlers.RouterOptions{
		LogRequests: logRequests,
		CorsOrigins: viper.GetStringSlice("http.cors-origins"),
	})

	s := &http.Server{
		Addr:         address,
		ReadTimeout:  viper.GetDuration("http.read-timeout"),
		WriteTimeout: viper.GetDuration("http.write-timeout"),
		IdleTimeout:  time.Second * 60,
		Handler:      r,
	}

	serveErr := make(chan error, 1)
	go func() {
		var err error
		if certFile != "" {
			logging.Logger(nil).Infof("Serving HTTPS on %s", address)
			err = s.ListenAndServeTLS(certFile, keyFile)
		} else {
			logging.Logger(nil).Infof("Serving HTTP on %s", address)
			err = s.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
		close(serveErr)
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a signal or the listener dies
	var runErr error
	select {
	case <-c:
	case runErr = <-serveErr:
		logging.Logger(nil).WithError(runErr).Error("running server")
	}

	// Create a deadline to wait for.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), wait)
	defer cancel()
	logging.Logger(nil).Info("shutting down")
	if err := s.Shutdown(shutdownCtx); err != nil {
		logging.Logger(nil).WithError(err).Errorf("shutting down")
	}

	// Release the hardware, then let the bridge publish the deletions
	if err := mgr.Close(logging.WithSource(shutdownCtx, "shutdown")); err != nil {
		logging.Logger(nil).WithError(err).Error("releasing relays")
	}
	if bridge != nil {
		bridge.Stop()
	}

	logging.Logger(nil).Info("exiting")
	return runErr
}
