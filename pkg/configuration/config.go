package configuration

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// LocalConfigFile überschreibt einzelne Werte der Basis-Konfiguration
const LocalConfigFile = "settings.local.cfg"

// Config verwaltet die Anwendungskonfiguration
type Config struct {
	settings map[string]map[string]string
	filePath string
	mu       sync.RWMutex
}

var (
	globalConfig *Config
	once         sync.Once
)

// sectionOrder bestimmt die Reihenfolge beim Schreiben
var sectionOrder = []string{"Runtime", "Store", "Server", "JWT", "TLS", "Debug"}

// Initialize initialisiert die globale Konfiguration
func Initialize(configPath string) error {
	var err error
	once.Do(func() {
		globalConfig, err = Load(configPath)
		if err != nil {
			return
		}
		localPath := filepath.Join(filepath.Dir(configPath), LocalConfigFile)
		if _, statErr := os.Stat(localPath); statErr == nil {
			// Fehler in der lokalen Datei lassen die Basis-Konfiguration unverändert
			_ = globalConfig.Merge(localPath)
		}
	})
	return err
}

// Load lädt die Konfiguration aus einer Datei. Fehlt sie, wird sie mit
// Standardwerten angelegt.
func Load(filePath string) (*Config, error) {
	config := &Config{
		settings: make(map[string]map[string]string),
		filePath: filePath,
	}
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		config.createDefaultConfig()
		if err := config.saveToFile(); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		return config, nil
	}

	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	if err := config.parse(file); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filePath, err)
	}
	return config, nil
}

// Merge lädt Überschreibungen aus einer weiteren Datei
func (c *Config) Merge(filePath string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.parse(file)
}

// parse liest INI-Zeilen; spätere Werte überschreiben frühere
func (c *Config) parse(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	currentSection := ""

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Überspringe leere Zeilen und Kommentare
		if line == "" || strings.HasPrefix(line, ";") || strings.HasPrefix(line, "#") {
			continue
		}

		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			currentSection = strings.TrimSpace(line[1 : len(line)-1])
			if c.settings[currentSection] == nil {
				c.settings[currentSection] = make(map[string]string)
			}
			continue
		}

		if currentSection == "" {
			continue
		}
		if key, value, ok := strings.Cut(line, "="); ok {
			c.settings[currentSection][strings.TrimSpace(key)] = strings.TrimSpace(value)
		}
	}
	return scanner.Err()
}

// createDefaultConfig erstellt die Standard-Konfiguration
func (c *Config) createDefaultConfig() {
	c.settings["Runtime"] = map[string]string{
		"max_steps":     "0",
		"max_source_kb": "256",
	}

	c.settings["Store"] = map[string]string{
		"db_path":        "kscr.db",
		"enable_journal": "true",
	}

	c.settings["Server"] = map[string]string{
		"listen_addr":         ":8080",
		"max_concurrent_runs": "8",
		"allowed_origins":     "localhost,127.0.0.1",
		"read_buffer_size":    "4096",
		"write_buffer_size":   "4096",
		"require_auth":        "true",
		"run_timeout":         "10s",
		"max_clients":         "100",
	}

	c.settings["JWT"] = map[string]string{
		"secret_key":             "",
		"token_expiration_hours": "24",
	}

	c.settings["TLS"] = map[string]string{
		"enable_tls":         "false",
		"enable_letsencrypt": "false",
		"domain":             "",
		"email":              "",
		"cert_file":          "",
		"key_file":           "",
		"cert_cache_dir":     "certs",
		"challenge_addr":     ":80",
	}

	c.settings["Debug"] = map[string]string{
		"enable_debug_logging": "true",
		"log_level":            "INFO",
		"log_file":             "kscr.log",
		"max_log_size_mb":      "10",
		"log_rotation_count":   "3",
		// Selektive Logging-Bereiche
		"log_lexer":    "false",
		"log_compiler": "false",
		"log_eval":     "false",
		"log_module":   "true",
		"log_store":    "true",
		"log_server":   "true",
		"log_auth":     "true",
		"log_security": "true",
		"log_config":   "true",
		"log_general":  "true",
	}
}

// saveToFile speichert die aktuelle Konfiguration in die Datei
func (c *Config) saveToFile() error {
	if err := os.MkdirAll(filepath.Dir(c.filePath), 0755); err != nil {
		return err
	}

	file, err := os.Create(c.filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	w.WriteString("; KScript Configuration File\n")
	w.WriteString("; Generated automatically - modify with care\n")
	w.WriteString(";\n\n")

	for _, section := range c.orderedSections() {
		settings := c.settings[section]
		fmt.Fprintf(w, "[%s]\n", section)

		keys := make([]string, 0, len(settings))
		for key := range settings {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			fmt.Fprintf(w, "%s = %s\n", key, settings[key])
		}
		w.WriteString("\n")
	}
	return w.Flush()
}

// orderedSections liefert bekannte Sektionen zuerst, dann alle weiteren alphabetisch
func (c *Config) orderedSections() []string {
	seen := make(map[string]bool, len(c.settings))
	sections := make([]string, 0, len(c.settings))
	for _, s := range sectionOrder {
		if _, exists := c.settings[s]; exists {
			sections = append(sections, s)
			seen[s] = true
		}
	}
	var rest []string
	for s := range c.settings {
		if !seen[s] {
			rest = append(rest, s)
		}
	}
	sort.Strings(rest)
	return append(sections, rest...)
}

// Get returns the raw value and whether it was set.
func (c *Config) Get(section, key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if sectionMap, exists := c.settings[section]; exists {
		value, ok := sectionMap[key]
		return value, ok
	}
	return "", false
}

// GetString gibt einen String-Wert aus der Konfiguration zurück
func GetString(section, key, defaultValue string) string {
	if globalConfig == nil {
		return defaultValue
	}
	if value, ok := globalConfig.Get(section, key); ok {
		return value
	}
	return defaultValue
}

// GetInt gibt einen Integer-Wert aus der Konfiguration zurück
func GetInt(section, key string, defaultValue int) int {
	str := GetString(section, key, "")
	if str == "" {
		return defaultValue
	}
	if value, err := strconv.Atoi(str); err == nil {
		return value
	}
	return defaultValue
}

// GetBool gibt einen Boolean-Wert aus der Konfiguration zurück
func GetBool(section, key string, defaultValue bool) bool {
	str := GetString(section, key, "")
	if str == "" {
		return defaultValue
	}
	if value, err := strconv.ParseBool(str); err == nil {
		return value
	}
	return defaultValue
}

// GetDuration gibt einen Duration-Wert aus der Konfiguration zurück
func GetDuration(section, key string, defaultValue time.Duration) time.Duration {
	str := GetString(section, key, "")
	if str == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(str); err == nil {
		return value
	}
	return defaultValue
}

// GetStringList splits a comma separated value, dropping empty items.
func GetStringList(section, key string, defaultValue []string) []string {
	str := GetString(section, key, "")
	if str == "" {
		return defaultValue
	}
	var items []string
	for _, item := range strings.Split(str, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// GetSection returns a copy of all key-value pairs of a section
func GetSection(sectionName string) map[string]string {
	result := make(map[string]string)
	if globalConfig == nil {
		return result
	}

	globalConfig.mu.RLock()
	defer globalConfig.mu.RUnlock()
	for key, value := range globalConfig.settings[sectionName] {
		result[key] = value
	}
	return result
}

// SetString setzt einen String-Wert in der Konfiguration
func SetString(section, key, value string) {
	if globalConfig == nil {
		return
	}

	globalConfig.mu.Lock()
	defer globalConfig.mu.Unlock()
	if globalConfig.settings[section] == nil {
		globalConfig.settings[section] = make(map[string]string)
	}
	globalConfig.settings[section][key] = value
}

// Save speichert die aktuelle Konfiguration in die Datei
func Save() error {
	if globalConfig == nil {
		return fmt.Errorf("configuration not initialized")
	}

	globalConfig.mu.RLock()
	defer globalConfig.mu.RUnlock()
	return globalConfig.saveToFile()
}
