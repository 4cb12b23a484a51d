package logger

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/antibyte/kscr/pkg/configuration"
)

// LogLevel definiert die verschiedenen Log-Level
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

var logLevelNames = map[LogLevel]string{
	DEBUG: "DEBUG",
	INFO:  "INFO",
	WARN:  "WARN",
	ERROR: "ERROR",
	FATAL: "FATAL",
}

// LogArea definiert die verschiedenen Log-Bereiche
type LogArea string

const (
	AreaLexer    LogArea = "lexer"
	AreaCompiler LogArea = "compiler"
	AreaEval     LogArea = "eval"
	AreaModule   LogArea = "module"
	AreaStore    LogArea = "store"
	AreaServer   LogArea = "server"
	AreaAuth     LogArea = "auth"
	AreaSecurity LogArea = "security"
	AreaConfig   LogArea = "config"
	AreaGeneral  LogArea = "general"
)

var allAreas = []LogArea{
	AreaLexer, AreaCompiler, AreaEval, AreaModule, AreaStore,
	AreaServer, AreaAuth, AreaSecurity, AreaConfig, AreaGeneral,
}

// Options beschreibt die Logger-Einstellungen aus der [Debug] Sektion
type Options struct {
	Enabled       bool
	Level         LogLevel
	Path          string
	MaxSizeMB     int64
	RotationCount int
	Areas         map[LogArea]bool
}

// Logger ist das Hauptlogging-System
type Logger struct {
	enabled       int32              // atomic bool
	level         int32              // atomic LogLevel
	areaEnabled   map[LogArea]*int32 // atomic bools per area
	file          *os.File
	mutex         sync.Mutex
	logPath       string
	maxSizeMB     int64
	rotationCount int
	currentSize   int64
}

var (
	globalLogger *Logger
	initOnce     sync.Once
)

// Initialize initialisiert das globale Logging-System aus der Konfiguration
func Initialize() error {
	var err error
	initOnce.Do(func() {
		globalLogger, err = New(optionsFromConfig())
	})
	return err
}

// optionsFromConfig liest die [Debug] Sektion
func optionsFromConfig() Options {
	opts := Options{
		Enabled:       configuration.GetBool("Debug", "enable_debug_logging", true),
		Level:         parseLogLevel(configuration.GetString("Debug", "log_level", "INFO")),
		Path:          configuration.GetString("Debug", "log_file", "kscr.log"),
		MaxSizeMB:     int64(configuration.GetInt("Debug", "max_log_size_mb", 10)),
		RotationCount: configuration.GetInt("Debug", "log_rotation_count", 3),
		Areas:         make(map[LogArea]bool, len(allAreas)),
	}
	for _, area := range allAreas {
		opts.Areas[area] = configuration.GetBool("Debug", "log_"+string(area), false)
	}
	return opts
}

// New erstellt einen Logger, der in opts.Path schreibt
func New(opts Options) (*Logger, error) {
	l := &Logger{
		areaEnabled:   make(map[LogArea]*int32, len(allAreas)),
		logPath:       opts.Path,
		maxSizeMB:     opts.MaxSizeMB,
		rotationCount: opts.RotationCount,
	}
	if l.maxSizeMB <= 0 {
		l.maxSizeMB = 10
	}
	for _, area := range allAreas {
		l.areaEnabled[area] = new(int32)
	}
	l.apply(opts)

	if err := l.openLogFile(); err != nil {
		return nil, err
	}
	return l, nil
}

// apply setzt die atomaren Schalter
func (l *Logger) apply(opts Options) {
	atomic.StoreInt32(&l.enabled, boolToInt32(opts.Enabled))
	atomic.StoreInt32(&l.level, int32(opts.Level))
	for area, flag := range l.areaEnabled {
		atomic.StoreInt32(flag, boolToInt32(opts.Areas[area]))
	}
}

// openLogFile öffnet die Log-Datei
func (l *Logger) openLogFile() error {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if l.file != nil {
		l.file.Close()
	}

	if err := os.MkdirAll(filepath.Dir(l.logPath), 0755); err != nil {
		return err
	}

	file, err := os.OpenFile(l.logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	l.file = file

	if stat, err := file.Stat(); err == nil {
		l.currentSize = stat.Size()
	}
	return nil
}

// rotateLocked rotiert die Log-Datei. Der Aufrufer hält l.mutex.
func (l *Logger) rotateLocked() error {
	if l.file != nil {
		l.file.Close()
		l.file = nil
	}

	for i := l.rotationCount - 1; i >= 1; i-- {
		oldName := fmt.Sprintf("%s.%d", l.logPath, i)
		newName := fmt.Sprintf("%s.%d", l.logPath, i+1)
		if i == l.rotationCount-1 {
			os.Remove(newName)
		}
		os.Rename(oldName, newName)
	}
	if l.rotationCount > 0 {
		os.Rename(l.logPath, l.logPath+".1")
	}

	file, err := os.OpenFile(l.logPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	l.file = file
	l.currentSize = 0
	return nil
}

func (l *Logger) isAreaEnabled(area LogArea) bool {
	if flag, exists := l.areaEnabled[area]; exists {
		return atomic.LoadInt32(flag) != 0
	}
	return false
}

// shouldLog prüft ob ein Log-Eintrag geschrieben werden soll
func (l *Logger) shouldLog(level LogLevel, area LogArea) bool {
	if atomic.LoadInt32(&l.enabled) == 0 {
		return false
	}
	if atomic.LoadInt32(&l.level) > int32(level) {
		return false
	}
	return l.isAreaEnabled(area)
}

// Logf schreibt einen Eintrag, wenn Level und Bereich aktiv sind
func (l *Logger) Logf(level LogLevel, area LogArea, format string, args ...interface{}) {
	if l.shouldLog(level, area) {
		l.writeLog(level, area, 2, format, args...)
	}
}

// writeLog schreibt den Log-Eintrag
func (l *Logger) writeLog(level LogLevel, area LogArea, depth int, format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)

	_, file, line, _ := runtime.Caller(depth)
	logEntry := fmt.Sprintf("[%s] %s [%s:%d] [%s] %s\n",
		time.Now().Format("2006-01-02 15:04:05.000"),
		logLevelNames[level],
		filepath.Base(file),
		line,
		strings.ToUpper(string(area)),
		message)

	l.mutex.Lock()
	if l.file != nil {
		n, err := l.file.WriteString(logEntry)
		if err == nil {
			l.currentSize += int64(n)
			if l.currentSize > l.maxSizeMB*1024*1024 {
				l.rotateLocked()
			}
		}
	}
	l.mutex.Unlock()

	// Zusätzlich in Standard-Log für wichtige Meldungen
	if level >= WARN {
		log.Printf("[%s] [%s] %s", logLevelNames[level], strings.ToUpper(string(area)), message)
	}
}

// Close schließt die Log-Datei
func (l *Logger) Close() {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	if l.file != nil {
		l.file.Close()
		l.file = nil
	}
}

// Public Logging-Funktionen für verschiedene Bereiche und Level.
// Ohne Initialize sind alle Aufrufe wirkungslos.

func Debug(area LogArea, format string, args ...interface{}) {
	if globalLogger != nil && globalLogger.shouldLog(DEBUG, area) {
		globalLogger.writeLog(DEBUG, area, 2, format, args...)
	}
}

func Info(area LogArea, format string, args ...interface{}) {
	if globalLogger != nil && globalLogger.shouldLog(INFO, area) {
		globalLogger.writeLog(INFO, area, 2, format, args...)
	}
}

func Warn(area LogArea, format string, args ...interface{}) {
	if globalLogger != nil && globalLogger.shouldLog(WARN, area) {
		globalLogger.writeLog(WARN, area, 2, format, args...)
	}
}

func Error(area LogArea, format string, args ...interface{}) {
	if globalLogger != nil && globalLogger.shouldLog(ERROR, area) {
		globalLogger.writeLog(ERROR, area, 2, format, args...)
	}
}

// Fatal schreibt Fatal-Logs und beendet das Programm
func Fatal(area LogArea, format string, args ...interface{}) {
	if globalLogger != nil {
		globalLogger.writeLog(FATAL, area, 2, format, args...)
	}
	log.Fatalf("[FATAL] [%s] %s", strings.ToUpper(string(area)), fmt.Sprintf(format, args...))
}

// Convenience-Funktionen für häufig verwendete Bereiche

// Eval Logging
func EvalDebug(format string, args ...interface{}) { Debug(AreaEval, format, args...) }
func EvalInfo(format string, args ...interface{})  { Info(AreaEval, format, args...) }
func EvalWarn(format string, args ...interface{})  { Warn(AreaEval, format, args...) }

// Server Logging
func ServerDebug(format string, args ...interface{}) { Debug(AreaServer, format, args...) }
func ServerInfo(format string, args ...interface{})  { Info(AreaServer, format, args...) }
func ServerWarn(format string, args ...interface{})  { Warn(AreaServer, format, args...) }
func ServerError(format string, args ...interface{}) { Error(AreaServer, format, args...) }

// Auth Logging
func AuthDebug(format string, args ...interface{}) { Debug(AreaAuth, format, args...) }
func AuthInfo(format string, args ...interface{})  { Info(AreaAuth, format, args...) }
func AuthWarn(format string, args ...interface{})  { Warn(AreaAuth, format, args...) }

// Security Logging
func SecurityInfo(format string, args ...interface{}) { Info(AreaSecurity, format, args...) }
func SecurityWarn(format string, args ...interface{}) { Warn(AreaSecurity, format, args...) }

// Store Logging
func StoreDebug(format string, args ...interface{}) { Debug(AreaStore, format, args...) }
func StoreInfo(format string, args ...interface{})  { Info(AreaStore, format, args...) }
func StoreError(format string, args ...interface{}) { Error(AreaStore, format, args...) }

// ReloadConfig lädt die Konfiguration neu
func ReloadConfig() error {
	if globalLogger == nil {
		return fmt.Errorf("logger not initialized")
	}
	globalLogger.apply(optionsFromConfig())
	return nil
}

// EnableArea aktiviert Logging für einen Bereich
func EnableArea(area LogArea) {
	if globalLogger != nil {
		if flag, exists := globalLogger.areaEnabled[area]; exists {
			atomic.StoreInt32(flag, 1)
		}
	}
}

// DisableArea deaktiviert Logging für einen Bereich
func DisableArea(area LogArea) {
	if globalLogger != nil {
		if flag, exists := globalLogger.areaEnabled[area]; exists {
			atomic.StoreInt32(flag, 0)
		}
	}
}

// GetAreaStatus gibt den Status eines Bereichs zurück
func GetAreaStatus(area LogArea) bool {
	if globalLogger != nil {
		return globalLogger.isAreaEnabled(area)
	}
	return false
}

// ListAreas gibt alle verfügbaren Bereiche zurück
func ListAreas() []LogArea {
	areas := make([]LogArea, len(allAreas))
	copy(areas, allAreas)
	return areas
}

func boolToInt32(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

func parseLogLevel(level string) LogLevel {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return DEBUG
	case "INFO":
		return INFO
	case "WARN", "WARNING":
		return WARN
	case "ERROR":
		return ERROR
	case "FATAL":
		return FATAL
	default:
		return INFO
	}
}

// Close schließt das globale Logging-System
func Close() {
	if globalLogger != nil {
		globalLogger.Close()
	}
}
