// ABOUTME: Server assembly for the modeladmin demo
// ABOUTME: Opens the configured store, mounts the admin console, serves HTTP or tsnet

package main

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"golang.org/x/crypto/bcrypt"
	"tailscale.com/tsnet"

	"github.com/2389/modeladmin/admin"
	"github.com/2389/modeladmin/datastore"
	"github.com/2389/modeladmin/datastore/mongostore"
	"github.com/2389/modeladmin/datastore/sqlstore"
	"github.com/2389/modeladmin/form"
	"github.com/2389/modeladmin/internal/config"
	"github.com/2389/modeladmin/internal/loginwall"
)

// schemaIniter is implemented by stores that create their tables up front.
type schemaIniter interface {
	InitSchema(ctx context.Context) error
}

// getDataPath returns the path to the modeladmin data directory.
// Priority: XDG_DATA_HOME/modeladmin > ~/.local/share/modeladmin
func getDataPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "data" // fallback
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	return filepath.Join(dataDir, "modeladmin")
}

func runServe(ctx context.Context) error {
	configPath := getConfigPath()

	// Print banner
	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	// Version info
	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Setup logger
	logger := setupLogger(cfg.Logging)
	slog.SetDefault(logger)

	// Startup info
	green := color.New(color.FgGreen)

	green.Print("    ▶ ")
	fmt.Printf("Config:    %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("Store:     %s\n", cfg.Database.Driver)
	if cfg.Server.HTTPAddr != "" {
		green.Print("    ▶ ")
		fmt.Printf("HTTP:      %s\n", cfg.Server.HTTPAddr)
	}
	if cfg.Tailscale.Enabled {
		green.Print("    ▶ ")
		fmt.Printf("Tailscale: ")
		cyan.Print(cfg.Tailscale.Hostname)
		if cfg.Tailscale.Ephemeral {
			gray.Print(" (ephemeral)")
		}
		fmt.Println()
	}
	fmt.Println()

	logger.Info("starting modeladmin-demo",
		"config", configPath,
		"driver", cfg.Database.Driver,
	)

	store, conv, err := openStore(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer store.Close()

	if initer, ok := store.(schemaIniter); ok {
		if err := initer.InitSchema(ctx); err != nil {
			return fmt.Errorf("initializing schema: %w", err)
		}
	}

	mux, err := buildMux(cfg, store, conv)
	if err != nil {
		return err
	}

	return serve(ctx, cfg, mux, logger)
}

// openStore opens the configured backend over the demo registry. The
// returned converter carries any backend-specific form fields.
func openStore(ctx context.Context, cfg config.DatabaseConfig) (datastore.Datastore, *form.Converter, error) {
	reg := newRegistry()
	conv := form.NewConverter()

	switch cfg.Driver {
	case config.DriverSQLite:
		store, err := sqlstore.OpenSQLite(reg, cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return store, conv, nil
	case config.DriverPostgres:
		store, err := sqlstore.OpenPostgres(reg, cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		return store, conv, nil
	case config.DriverMongo:
		store, err := mongostore.Open(ctx, reg, cfg.URI, cfg.Name)
		if err != nil {
			return nil, nil, err
		}
		mongostore.RegisterConverters(conv)
		return store, conv, nil
	case config.DriverMemory:
		return datastore.NewMemory(reg), conv, nil
	default:
		return nil, nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

func buildMux(cfg *config.Config, store datastore.Datastore, conv *form.Converter) (*http.ServeMux, error) {
	mux := http.NewServeMux()

	opts := admin.Options{
		Name:      cfg.Admin.Name,
		PageSize:  cfg.Admin.PageSize,
		IncludePK: cfg.Admin.IncludePK,
		Intro:     cfg.Admin.Intro,
		Converter: conv,
	}

	if cfg.Auth.Enabled {
		wall, err := loginwall.New(loginwall.Options{
			Username:     cfg.Auth.Username,
			PasswordHash: cfg.Auth.PasswordHash,
			Secret:       []byte(cfg.Auth.JWTSecret),
			SessionTTL:   cfg.Auth.SessionTTL,
		})
		if err != nil {
			return nil, fmt.Errorf("building login wall: %w", err)
		}
		wall.RegisterRoutes(mux)
		opts.Decorator = wall.Protect
	}

	a, err := admin.New(store, opts)
	if err != nil {
		return nil, fmt.Errorf("building admin: %w", err)
	}
	a.RegisterRoutes(mux)

	// Root redirects into the admin. The health endpoint stays outside
	// the login wall so probes keep working.
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, a.BasePath()+"/", http.StatusSeeOther)
	})
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprintln(w, "ok")
	})

	return mux, nil
}

func serve(ctx context.Context, cfg *config.Config, mux *http.ServeMux, logger *slog.Logger) error {
	ln, cleanup, err := listen(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	srv := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	logger.Info("admin server listening", "addr", ln.Addr().String())

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		serveErr = err
		logger.Error("server error", "error", err)
	}

	// The signal context is already canceled by the time we get here, so
	// shutdown runs on a fresh context with its own timeout.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		if serveErr == nil {
			serveErr = err
		}
	}

	return serveErr
}

// listen returns the server listener: plain TCP normally, a tsnet
// listener when tailscale is enabled.
func listen(ctx context.Context, cfg *config.Config, logger *slog.Logger) (net.Listener, func(), error) {
	if !cfg.Tailscale.Enabled {
		ln, err := net.Listen("tcp", cfg.Server.HTTPAddr)
		if err != nil {
			return nil, nil, fmt.Errorf("listening on %s: %w", cfg.Server.HTTPAddr, err)
		}
		return ln, func() {}, nil
	}

	tsCfg := cfg.Tailscale

	stateDir, err := resolveTailscaleStateDir(tsCfg.StateDir)
	if err != nil {
		return nil, nil, err
	}
	if err := os.MkdirAll(stateDir, 0700); err != nil {
		return nil, nil, fmt.Errorf("creating tailscale state dir: %w", err)
	}

	authKey, err := resolveTailscaleAuthKey(tsCfg.AuthKey)
	if err != nil {
		return nil, nil, err
	}

	ts := &tsnet.Server{
		Hostname:  tsCfg.Hostname,
		Dir:       stateDir,
		Ephemeral: tsCfg.Ephemeral,
		AuthKey:   authKey,
	}

	logger.Info("starting tailscale node", "hostname", tsCfg.Hostname, "state_dir", stateDir, "ephemeral", tsCfg.Ephemeral)
	if _, err := ts.Up(ctx); err != nil {
		_ = ts.Close()
		return nil, nil, fmt.Errorf("starting tailscale: %w", err)
	}

	ln, err := ts.Listen("tcp", ":80")
	if err != nil {
		_ = ts.Close()
		return nil, nil, fmt.Errorf("listening on tailscale: %w", err)
	}

	return ln, func() { _ = ts.Close() }, nil
}

// resolveTailscaleStateDir returns the state directory from config or the default.
func resolveTailscaleStateDir(configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory for tailscale state (set tailscale.state_dir explicitly): %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "modeladmin", "tailscale"), nil
}

// resolveTailscaleAuthKey returns the auth key from config or environment.
func resolveTailscaleAuthKey(configured string) (string, error) {
	authKey := configured
	if authKey == "" {
		authKey = os.Getenv("TS_AUTHKEY")
	}
	if authKey == "" {
		return "", errors.New("tailscale auth key required: set auth_key in config or TS_AUTHKEY environment variable (get one at https://login.tailscale.com/admin/settings/keys)")
	}
	return authKey, nil
}

func runInit() error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("modeladmin-demo configuration setup")
	fmt.Println("===================================")
	fmt.Println()

	// Default paths
	defaultConfigPath := getConfigPath()
	defaultDataPath := getDataPath()
	defaultDBPath := filepath.Join(defaultDataPath, "admin.db")

	// Output filename
	outputFile := prompt(reader, "Config file path", defaultConfigPath)

	// Check if file exists
	if _, err := os.Stat(outputFile); err == nil {
		overwrite := prompt(reader, "File exists. Overwrite?", "no")
		if strings.ToLower(overwrite) != "yes" && strings.ToLower(overwrite) != "y" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	// Server configuration
	fmt.Println("\n--- Server Configuration ---")
	httpAddr := prompt(reader, "HTTP address", "localhost:8080")

	// Database
	fmt.Println("\n--- Database Configuration ---")
	driver := prompt(reader, "Database driver (sqlite/postgres/mongo/memory)", "sqlite")

	var dbPath, dbDSN, dbURI, dbName string
	switch driver {
	case config.DriverSQLite:
		dbPath = prompt(reader, "SQLite database path", defaultDBPath)
	case config.DriverPostgres:
		dbDSN = prompt(reader, "Postgres DSN", "postgres://localhost:5432/modeladmin")
	case config.DriverMongo:
		dbURI = prompt(reader, "MongoDB URI", "mongodb://localhost:27017")
		dbName = prompt(reader, "MongoDB database name", "modeladmin")
	case config.DriverMemory:
		// nothing to configure
	default:
		return fmt.Errorf("unknown database driver %q", driver)
	}

	// Admin
	fmt.Println("\n--- Admin Configuration ---")
	adminName := prompt(reader, "Admin name (used in URLs)", "admin")
	pageSize := prompt(reader, "Rows per list page", "25")

	// Auth
	fmt.Println("\n--- Auth Configuration ---")
	enableAuth := prompt(reader, "Protect the admin with a login page?", "yes")
	authEnabled := strings.ToLower(enableAuth) == "yes" || strings.ToLower(enableAuth) == "y"

	var authUser, authHash, jwtSecret string
	if authEnabled {
		authUser = prompt(reader, "Admin username", "admin")
		password := prompt(reader, "Admin password", "")
		if password == "" {
			return errors.New("password cannot be empty when auth is enabled")
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hashing password: %w", err)
		}
		authHash = string(hash)

		secretBytes := make([]byte, 32)
		if _, err := rand.Read(secretBytes); err != nil {
			return fmt.Errorf("generating JWT secret: %w", err)
		}
		jwtSecret = base64.StdEncoding.EncodeToString(secretBytes)
	}

	// Logging
	fmt.Println("\n--- Logging Configuration ---")
	logLevel := prompt(reader, "Log level (debug/info/warn/error)", "info")
	logFormat := prompt(reader, "Log format (text/json)", "text")

	// Generate config
	var cfg strings.Builder
	cfg.WriteString("# modeladmin-demo configuration\n")
	cfg.WriteString("# Generated by modeladmin-demo init\n\n")

	cfg.WriteString("server:\n")
	cfg.WriteString(fmt.Sprintf("  http_addr: \"%s\"\n", httpAddr))
	cfg.WriteString("\n")

	cfg.WriteString("database:\n")
	cfg.WriteString(fmt.Sprintf("  driver: \"%s\"\n", driver))
	switch driver {
	case config.DriverSQLite:
		cfg.WriteString(fmt.Sprintf("  path: \"%s\"\n", dbPath))
	case config.DriverPostgres:
		cfg.WriteString(fmt.Sprintf("  dsn: \"%s\"\n", dbDSN))
	case config.DriverMongo:
		cfg.WriteString(fmt.Sprintf("  uri: \"%s\"\n", dbURI))
		cfg.WriteString(fmt.Sprintf("  name: \"%s\"\n", dbName))
	}
	cfg.WriteString("\n")

	cfg.WriteString("admin:\n")
	cfg.WriteString(fmt.Sprintf("  name: \"%s\"\n", adminName))
	cfg.WriteString(fmt.Sprintf("  page_size: %s\n", pageSize))
	cfg.WriteString("\n")

	cfg.WriteString("auth:\n")
	cfg.WriteString(fmt.Sprintf("  enabled: %t\n", authEnabled))
	if authEnabled {
		cfg.WriteString(fmt.Sprintf("  username: \"%s\"\n", authUser))
		cfg.WriteString(fmt.Sprintf("  password_hash: \"%s\"\n", authHash))
		cfg.WriteString(fmt.Sprintf("  jwt_secret: \"%s\"\n", jwtSecret))
		cfg.WriteString("  session_ttl: \"12h\"\n")
	}
	cfg.WriteString("\n")

	cfg.WriteString("logging:\n")
	cfg.WriteString(fmt.Sprintf("  level: \"%s\"\n", logLevel))
	cfg.WriteString(fmt.Sprintf("  format: \"%s\"\n", logFormat))

	// Create parent directories
	if dir := filepath.Dir(outputFile); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}
	}
	if driver == config.DriverSQLite {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return fmt.Errorf("creating data directory: %w", err)
		}
	}

	if err := os.WriteFile(outputFile, []byte(cfg.String()), 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	green := color.New(color.FgGreen)
	green.Printf("\n  ✓ Created config: %s\n", outputFile)
	fmt.Println()
	fmt.Println("Start the server with: modeladmin-demo serve")
	return nil
}

func prompt(reader *bufio.Reader, question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", question, defaultVal)
	} else {
		fmt.Printf("%s: ", question)
	}

	input, err := reader.ReadString('\n')
	if err != nil {
		// On EOF or error, return default
		fmt.Println()
		return defaultVal
	}
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultVal
	}
	return input
}
