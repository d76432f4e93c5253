package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/viper"
)

// ConfigIssue represents a validation finding.
type ConfigIssue struct {
	Key      string `json:"key"`
	Severity string `json:"severity"` // "error", "warning", "info"
	Message  string `json:"message"`
	Fix      string `json:"fix"`
}

// Wizard runs the interactive setup wizard, writing prompts to out.
// If reader is nil, reads from os.Stdin.
func Wizard(reader io.Reader, out io.Writer) error {
	if reader == nil {
		reader = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}
	scanner := bufio.NewScanner(reader)
	ask := func(prompt string) string {
		fmt.Fprint(out, prompt)
		scanner.Scan()
		return strings.TrimSpace(scanner.Text())
	}

	SetDefaults()
	fmt.Fprintln(out, "docconv setup")
	fmt.Fprintln(out, strings.Repeat("-", 48))
	fmt.Fprintln(out)

	// Step 1: PDF engine
	fmt.Fprintln(out, "Step 1/3: PDF engine")
	fmt.Fprintln(out, "  [1] native (built in, recommended)")
	fmt.Fprintln(out, "  [2] browser (headless Chrome, closer to the HTML rendering)")
	switch ask("  Choice: ") {
	case "2":
		viper.Set("pdf.engine", "browser")
		if u := ask("  DevTools URL of a running Chrome (empty launches one): "); u != "" {
			viper.Set("browser.remote_url", u)
		}
	default:
		viper.Set("pdf.engine", "native")
	}
	fmt.Fprintln(out)

	// Step 2: Limits
	fmt.Fprintln(out, "Step 2/3: Limits")
	if v := ask(fmt.Sprintf("  Maximum file size (default %s): ", viper.GetString("limits.max_file_size"))); v != "" {
		if _, err := parseSize("limits.max_file_size", v); err != nil {
			fmt.Fprintf(out, "  %v — keeping the default\n", err)
		} else {
			viper.Set("limits.max_file_size", v)
		}
	}
	fmt.Fprintln(out)

	// Step 3: History
	fmt.Fprintln(out, "Step 3/3: Conversion history")
	switch strings.ToLower(ask("  Record conversions in ~/.docconv/history.jsonl? [Y/n]: ")) {
	case "n", "no":
		viper.Set("audit.enabled", false)
	default:
		viper.Set("audit.enabled", true)
	}
	fmt.Fprintln(out)

	if err := SaveConfig(); err != nil {
		return fmt.Errorf("could not save config: %w", err)
	}

	fmt.Fprintln(out, strings.Repeat("-", 48))
	fmt.Fprintf(out, "Config file: %s\n", ConfigPath())
	fmt.Fprintln(out, "Type 'docconv config show' to see all settings.")
	return nil
}

// WizardNonInteractive writes a config file holding the defaults.
func WizardNonInteractive() error {
	SetDefaults()
	for k, v := range defaults {
		viper.Set(k, v)
	}
	return SaveConfig()
}

// Validate checks config values and returns a list of issues.
func Validate() []ConfigIssue {
	var issues []ConfigIssue

	switch engine := viper.GetString("pdf.engine"); engine {
	case "", "native":
	case "browser":
		msg := "browser engine will launch a local headless Chrome"
		if u := viper.GetString("browser.remote_url"); u != "" {
			msg = "browser engine connects to " + u
		}
		issues = append(issues, ConfigIssue{Key: "pdf.engine", Severity: "info", Message: msg})
	default:
		issues = append(issues, ConfigIssue{
			Key:      "pdf.engine",
			Severity: "error",
			Message:  fmt.Sprintf("unknown PDF engine %q", engine),
			Fix:      "docconv config set pdf.engine native",
		})
	}

	if file := viper.GetString("pdf.font_file"); file != "" {
		if _, err := os.Stat(ExpandHome(file)); err != nil {
			issues = append(issues, ConfigIssue{
				Key:      "pdf.font_file",
				Severity: "error",
				Message:  fmt.Sprintf("font file %s cannot be read", file),
				Fix:      "docconv config set pdf.font_file /path/to/NotoSansSC-Regular.ttf",
			})
		}
	}

	for _, key := range []string{"limits.max_file_size", "limits.max_member_size"} {
		if _, err := parseSize(key, viper.GetString(key)); err != nil {
			issues = append(issues, ConfigIssue{
				Key:      key,
				Severity: "error",
				Message:  err.Error(),
				Fix:      fmt.Sprintf("docconv config set %s 50MiB", key),
			})
		}
	}

	for _, key := range []string{"limits.max_pages", "limits.max_slides"} {
		if viper.GetInt(key) <= 0 {
			issues = append(issues, ConfigIssue{
				Key:      key,
				Severity: "warning",
				Message:  fmt.Sprintf("%s is not positive — the built-in default of 50 applies", key),
				Fix:      fmt.Sprintf("docconv config set %s 50", key),
			})
		}
	}

	if viper.GetDuration("limits.parse_timeout") <= 0 {
		issues = append(issues, ConfigIssue{
			Key:      "limits.parse_timeout",
			Severity: "warning",
			Message:  "limits.parse_timeout is not a positive duration — 30s applies",
			Fix:      "docconv config set limits.parse_timeout 30s",
		})
	}

	if viper.GetBool("audit.enabled") {
		dir := filepath.Dir(ExpandHome(viper.GetString("audit.path")))
		if info, err := os.Stat(dir); err == nil && !info.IsDir() {
			issues = append(issues, ConfigIssue{
				Key:      "audit.path",
				Severity: "warning",
				Message:  fmt.Sprintf("%s is not a directory — history will not be recorded", dir),
			})
		}
	}

	return issues
}

// ToEnv returns all config values as a map of env var name -> value.
func ToEnv() map[string]string {
	env := make(map[string]string)
	for _, key := range viper.AllKeys() {
		if v := viper.GetString(key); v != "" {
			env["DOCCONV_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_"))] = v
		}
	}
	return env
}

// Set sets a config value and saves to disk.
func Set(key, value string) error {
	viper.Set(key, value)
	return SaveConfig()
}

// Get retrieves a config value.
func Get(key string) string {
	return viper.GetString(key)
}

// ResetConfig deletes the config file and restores the defaults.
func ResetConfig() error {
	path := ConfigPath()
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("could not delete config: %w", err)
	}
	for k, v := range defaults {
		viper.Set(k, v)
	}
	return nil
}

// SaveConfig writes the current config to ~/.docconv/config.yaml.
func SaveConfig() error {
	dir := configDir()
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("could not create config directory: %w", err)
	}

	path := filepath.Join(dir, "config.yaml")
	if err := viper.WriteConfigAs(path); err != nil {
		return fmt.Errorf("could not write config: %w", err)
	}
	return nil
}

// ConfigPath returns the path to the config file.
func ConfigPath() string {
	return filepath.Join(configDir(), "config.yaml")
}

// ShowConfig returns a formatted string of the current configuration.
func ShowConfig() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Config: %s\n", ConfigPath())

	section := ""
	keys := viper.AllKeys()
	sort.Strings(keys)
	for _, key := range keys {
		head, name, ok := strings.Cut(key, ".")
		if !ok {
			head, name = "general", key
		}
		if head != section {
			section = head
			fmt.Fprintf(&sb, "\n%s\n", head)
		}
		fmt.Fprintf(&sb, "  %-16s %s\n", name+":", viper.GetString(key))
	}
	return sb.String()
}
