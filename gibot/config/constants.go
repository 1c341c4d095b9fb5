package config

import "time"

// Application-wide constants organized by domain

// UI and Display Constants
const (
	// Pagination
	CardsPerPage    = 10
	DefaultPageSize = 10
	MaxPageSize     = 25

	// Colors
	ErrorColor   = 0xFF0000
	SuccessColor = 0x00FF00
	InfoColor    = 0x0099FF
	WarningColor = 0xFFAA00

	// Discord UI Colors
	BackgroundColor   = 0x2B2D31
	EmbedDefaultColor = 0x2B2D31

	// Attack flow colors
	AttackDeclaredColor = 0xE67E22
	AttackBlockedColor  = 0x3498DB
	AttackLandedColor   = 0x992D22
)

// Database and Performance Constants
const (
	// Timeouts
	DefaultQueryTimeout     = 30 * time.Second
	SearchTimeout           = 10 * time.Second
	CommandExecutionTimeout = 10 * time.Second
	NetworkDialTimeout      = 5 * time.Second
	NetworkKeepAlive        = 30 * time.Second

	// Cache settings
	CacheExpiration = 5 * time.Minute
	CacheSize       = 10000

	// Batch processing
	DefaultBatchSize = 50
	NumWorkers       = 3
	MaxRetries       = 3
)

// Game Mechanics Constants
const (
	// Reveal sessions
	RevealSessionTimeout = 10 * time.Minute

	// Daily system
	DailyJennyReward = 2500
	DailyPeriod      = 24 * time.Hour

	// Page wards
	PageWardDuration = 6 * time.Hour
)

// File and Storage Constants
const (
	// Image processing
	MaxImageSize = 10 * 1024 * 1024 // 10MB

	// File paths
	CardImageRoot  = "cards/"
	UserAvatarRoot = "avatars/"
)

// Logging and Monitoring Constants
const (
	// Log levels
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)
