// Package config parses the login server's configuration file: one
// "key: value" pair per line, "//" line comments, and "import: path"
// directives that splice another file's lines in place. This is
// eAthena's own config grammar, not a generic format, so it is
// hand-rolled rather than delegated to a library.
package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"loginsrv/internal/subnet"
)

// Config holds every server tunable, plus the ambient keys added for
// logging, metrics, and the account store selection.
type Config struct {
	BindIP                 string
	LoginPort              int
	LogLogin               bool
	NewAccount             bool
	StartLimitedTime       int64
	CheckClientVersion     bool
	ClientVersionToConnect uint32
	UseMD5Passwords        bool
	MinLevelToConnect      int
	DateFormat             string
	Console                bool
	CaseSensitive          bool
	AllowedRegs            int
	TimeAllowed            time.Duration
	OnlineCheck            bool
	UseDNSBL               bool
	DNSBLServers           []string
	IPSyncInterval         time.Duration

	DynamicPassFailureBanInterval time.Duration
	DynamicPassFailureBanLimit    int
	DynamicPassFailureBanDuration time.Duration

	Subnets []subnet.Entry

	// Ambient stack keys.
	LogLevel               string
	LogFile                string
	MetricsBind            string
	AccountDBDriver        string // "mysql" | "file"
	GMTableFile            string
	GMTableRefreshInterval time.Duration

	// account_db_driver == "mysql"
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string

	// account_db_driver == "file"
	FileStorePath string
}

// Default returns the baked-in defaults, mirroring login_set_defaults in
// the original server.
func Default() Config {
	return Config{
		BindIP:                 "0.0.0.0",
		LoginPort:              6900,
		LogLogin:               true,
		NewAccount:             false,
		CheckClientVersion:     false,
		ClientVersionToConnect: 20,
		UseMD5Passwords:        false,
		MinLevelToConnect:      0,
		DateFormat:             "2006-01-02 15:04:05",
		Console:                false,
		CaseSensitive:          false,
		AllowedRegs:            1,
		TimeAllowed:            10 * time.Second,
		OnlineCheck:            true,
		UseDNSBL:               false,
		IPSyncInterval:         10 * time.Minute,

		DynamicPassFailureBanInterval: 5 * time.Minute,
		DynamicPassFailureBanLimit:    7,
		DynamicPassFailureBanDuration: 5 * time.Minute,

		LogLevel:               "info",
		AccountDBDriver:        "file",
		GMTableRefreshInterval: 5 * time.Minute,
	}
}

// Load reads path and any files it "import:"s, applying values over
// Default(). lanPath, if non-empty, is read afterwards with the same
// line handling, so its subnet: lines are added and any other key it
// sets overrides the value from path.
func Load(path, lanPath string) (Config, error) {
	cfg := Default()
	if err := applyFile(&cfg, path, map[string]bool{}); err != nil {
		return Config{}, err
	}
	if lanPath != "" {
		if err := applyFile(&cfg, lanPath, map[string]bool{}); err != nil {
			return Config{}, err
		}
	}
	return cfg, nil
}

func applyFile(cfg *Config, path string, seen map[string]bool) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if seen[abs] {
		return fmt.Errorf("config: circular import of %s", path)
	}
	seen[abs] = true

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		key, value, ok := splitKeyValue(line)
		if !ok {
			continue
		}
		if key == "import" {
			importPath := value
			if !filepath.IsAbs(importPath) {
				importPath = filepath.Join(filepath.Dir(path), importPath)
			}
			if err := applyFile(cfg, importPath, seen); err != nil {
				return err
			}
			continue
		}
		if key == "subnet" {
			entry, err := subnet.Parse(value)
			if err != nil {
				return fmt.Errorf("config: subnet line %q: %w", value, err)
			}
			cfg.Subnets = append(cfg.Subnets, entry)
			continue
		}
		if err := setValue(cfg, key, value); err != nil {
			return fmt.Errorf("config: %s: %w", key, err)
		}
	}
	return sc.Err()
}

func splitKeyValue(line string) (key, value string, ok bool) {
	i := strings.Index(line, ":")
	if i < 0 {
		return "", "", false
	}
	return strings.TrimSpace(line[:i]), strings.TrimSpace(line[i+1:]), true
}

func setValue(cfg *Config, key, value string) error {
	switch key {
	case "bind_ip":
		cfg.BindIP = value
	case "login_port":
		return setInt(&cfg.LoginPort, value)
	case "log_login":
		return setBool(&cfg.LogLogin, value)
	case "new_account":
		return setBool(&cfg.NewAccount, value)
	case "start_limited_time":
		return setInt64(&cfg.StartLimitedTime, value)
	case "check_client_version":
		return setBool(&cfg.CheckClientVersion, value)
	case "client_version_to_connect":
		n, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			return err
		}
		cfg.ClientVersionToConnect = uint32(n)
	case "use_md5_passwords":
		return setBool(&cfg.UseMD5Passwords, value)
	case "min_level_to_connect":
		return setInt(&cfg.MinLevelToConnect, value)
	case "date_format":
		cfg.DateFormat = value
	case "console":
		return setBool(&cfg.Console, value)
	case "case_sensitive":
		return setBool(&cfg.CaseSensitive, value)
	case "allowed_regs":
		return setInt(&cfg.AllowedRegs, value)
	case "time_allowed":
		return setSeconds(&cfg.TimeAllowed, value)
	case "online_check":
		return setBool(&cfg.OnlineCheck, value)
	case "use_dnsbl":
		return setBool(&cfg.UseDNSBL, value)
	case "dnsbl_servers":
		cfg.DNSBLServers = splitCSV(value)
	case "ip_sync_interval":
		return setMinutes(&cfg.IPSyncInterval, value)
	case "dynamic_pass_failure_ban_interval":
		return setMinutes(&cfg.DynamicPassFailureBanInterval, value)
	case "dynamic_pass_failure_ban_limit":
		return setInt(&cfg.DynamicPassFailureBanLimit, value)
	case "dynamic_pass_failure_ban_duration":
		return setMinutes(&cfg.DynamicPassFailureBanDuration, value)
	case "log_level":
		cfg.LogLevel = value
	case "log_file":
		cfg.LogFile = value
	case "metrics_bind":
		cfg.MetricsBind = value
	case "account_db_driver":
		cfg.AccountDBDriver = value
	case "gm_table_file":
		cfg.GMTableFile = value
	case "gm_table_refresh_interval":
		return setSeconds(&cfg.GMTableRefreshInterval, value)
	case "db_host":
		cfg.DBHost = value
	case "db_port":
		return setInt(&cfg.DBPort, value)
	case "db_user":
		cfg.DBUser = value
	case "db_password":
		cfg.DBPassword = value
	case "db_name":
		cfg.DBName = value
	case "file_store_path":
		cfg.FileStorePath = value
	default:
		// Unknown keys are ignored, matching the original's tolerant parser.
	}
	return nil
}

func setInt(dst *int, value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return err
	}
	*dst = n
	return nil
}

func setInt64(dst *int64, value string) error {
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return err
	}
	*dst = n
	return nil
}

func setBool(dst *bool, value string) error {
	switch strings.ToLower(value) {
	case "1", "true", "yes", "on":
		*dst = true
	case "0", "false", "no", "off":
		*dst = false
	default:
		return fmt.Errorf("invalid boolean %q", value)
	}
	return nil
}

func setSeconds(dst *time.Duration, value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return err
	}
	*dst = time.Duration(n) * time.Second
	return nil
}

func setMinutes(dst *time.Duration, value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return err
	}
	*dst = time.Duration(n) * time.Minute
	return nil
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
