package cmd

import (
	"errors"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	m "github.com/BillChirico/lua-obfuscator/internal/model"
)

const (
	configVersionKey     = "version"
	currentConfigVersion = 1

	configBaseName   = "luaobf"
	configFileName   = configBaseName + ".yaml"
	configFolderPath = "."

	outputFlagName    = "output"
	reportsFlagName   = "reports"
	recursiveFlagName = "recursive"
	parallelFlagName  = "parallel"

	levelFlagName      = "level"
	seedFlagName       = "seed"
	stringAlgoFlagName = "string-algo"
	mangleFlagName     = "mangle"
	stringsFlagName    = "strings"
	numbersFlagName    = "numbers"
	deadCodeFlagName   = "dead-code"
	opaqueFlagName     = "opaque"
	flattenFlagName    = "flatten"
	antiDebugFlagName  = "anti-debug"
	minifyFlagName     = "minify"
	lineJunkFlagName   = "line-junk"

	outputConfigKey    = "run.output"
	reportsConfigKey   = "run.reports"
	recursiveConfigKey = "run.recursive"
	parallelConfigKey  = "run.parallel"

	levelConfigKey      = "obfuscate.level"
	seedConfigKey       = "obfuscate.seed"
	stringAlgoConfigKey = "obfuscate.string_algo"
	mangleConfigKey     = "obfuscate.mangle"
	stringsConfigKey    = "obfuscate.strings"
	numbersConfigKey    = "obfuscate.numbers"
	deadCodeConfigKey   = "obfuscate.dead_code"
	opaqueConfigKey     = "obfuscate.opaque"
	flattenConfigKey    = "obfuscate.flatten"
	antiDebugConfigKey  = "obfuscate.anti_debug"
	minifyConfigKey     = "obfuscate.minify"
	lineJunkConfigKey   = "obfuscate.line_junk"

	defaultParallel = 1

	envPrefix = "LUAOBF"

	logFilenameKey   = "log.filename"
	logLevelKey      = "log.level"
	logVerboseKey    = "log.verbose"
	logMaxSizeKey    = "log.max_size"
	logMaxBackupsKey = "log.max_backups"
	logMaxAgeKey     = "log.max_age"
	logCompressKey   = "log.compress"

	defaultLogFilename   = ".luaobf.log"
	defaultLogLevel      = int(slog.LevelInfo)
	defaultLogVerbose    = false
	defaultLogMaxSize    = 10
	defaultLogMaxBackups = 3
	defaultLogMaxAge     = 28
	defaultLogCompress   = true
)

var globalLogger *slog.Logger

func init() {
	viper.SetConfigName(configBaseName)
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configFolderPath)
	viper.SetConfigFile(filepath.Join(configFolderPath, configFileName))
	viper.AutomaticEnv()
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	defaults := m.DefaultOptions()

	viper.SetDefault(configVersionKey, currentConfigVersion)
	viper.SetDefault(outputConfigKey, "")
	viper.SetDefault(reportsConfigKey, "")
	viper.SetDefault(recursiveConfigKey, false)
	viper.SetDefault(parallelConfigKey, defaultParallel)

	viper.SetDefault(levelConfigKey, defaults.ProtectionLevel)
	viper.SetDefault(seedConfigKey, int64(0))
	viper.SetDefault(stringAlgoConfigKey, string(defaults.StringAlgorithm))
	viper.SetDefault(mangleConfigKey, defaults.MangleNames)
	viper.SetDefault(stringsConfigKey, defaults.EncodeStrings)
	viper.SetDefault(numbersConfigKey, defaults.EncodeNumbers)
	viper.SetDefault(deadCodeConfigKey, defaults.InjectDeadCode)
	viper.SetDefault(opaqueConfigKey, defaults.OpaquePredicates)
	viper.SetDefault(flattenConfigKey, defaults.FlattenControlFlow)
	viper.SetDefault(antiDebugConfigKey, defaults.AntiIntrospection)
	viper.SetDefault(minifyConfigKey, defaults.Minify)
	viper.SetDefault(lineJunkConfigKey, defaults.DeadCodeLines)

	// Logging defaults (used by config/env and as fallbacks for flags).
	viper.SetDefault(logFilenameKey, defaultLogFilename)
	viper.SetDefault(logLevelKey, defaultLogLevel)
	viper.SetDefault(logVerboseKey, defaultLogVerbose)
	viper.SetDefault(logMaxSizeKey, defaultLogMaxSize)
	viper.SetDefault(logMaxBackupsKey, defaultLogMaxBackups)
	viper.SetDefault(logMaxAgeKey, defaultLogMaxAge)
	viper.SetDefault(logCompressKey, defaultLogCompress)

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return
		}

		return
	}
}

// optionsFromConfig assembles pipeline options from the resolved flag,
// config and environment values.
func optionsFromConfig() m.ObfuscationOptions {
	return m.ObfuscationOptions{
		MangleNames:        viper.GetBool(mangleConfigKey),
		EncodeStrings:      viper.GetBool(stringsConfigKey),
		EncodeNumbers:      viper.GetBool(numbersConfigKey),
		InjectDeadCode:     viper.GetBool(deadCodeConfigKey),
		OpaquePredicates:   viper.GetBool(opaqueConfigKey),
		FlattenControlFlow: viper.GetBool(flattenConfigKey),
		AntiIntrospection:  viper.GetBool(antiDebugConfigKey),
		Minify:             viper.GetBool(minifyConfigKey),
		DeadCodeLines:      viper.GetBool(lineJunkConfigKey),
		ProtectionLevel:    viper.GetInt(levelConfigKey),
		StringAlgorithm:    m.StringAlgorithm(viper.GetString(stringAlgoConfigKey)),
	}
}

func parseSlogLevel(value string, defaultLevel slog.Level) slog.Level {
	level := strings.ToLower(strings.TrimSpace(value))
	if level == "" {
		return defaultLevel
	}

	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}

	// Allow numeric slog levels as well (e.g. -4 for debug).
	if n, err := strconv.Atoi(level); err == nil {
		return slog.Level(n)
	}

	return defaultLevel
}

// configureLogger configures the global slog logger.
//
// By default it logs at Info; if verbose is true it logs at Debug.
func configureLogger(logPath string, verbose bool) {
	if strings.TrimSpace(logPath) == "" {
		logPath = viper.GetString(logFilenameKey)
	}

	if strings.TrimSpace(logPath) == "" {
		logPath = defaultLogFilename
	}

	var logLevel slog.Level
	if verbose {
		logLevel = slog.LevelDebug
	} else {
		logLevel = parseSlogLevel(viper.GetString(logLevelKey), slog.LevelInfo)
	}

	logWriter := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    viper.GetInt(logMaxSizeKey),
		MaxBackups: viper.GetInt(logMaxBackupsKey),
		MaxAge:     viper.GetInt(logMaxAgeKey),
		Compress:   viper.GetBool(logCompressKey),
	}

	handler := slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		AddSource: true,
		Level:     logLevel,
	})

	globalLogger = slog.New(handler)
	slog.SetDefault(globalLogger)
}
