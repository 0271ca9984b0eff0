package constants

import "time"

const (
	KafkaBatchTimeout = 10 * time.Millisecond
	KafkaWriteTimeout = 10 * time.Second
)

const (
	ShutdownTimeout = 5 * time.Second
)

// Every dedup-store round trip is time-bounded; a timeout is treated as a
// store fault and handled by the fail-open policy.
const (
	StoreOpTimeout = 2 * time.Second
)

// Dedup key namespaces. Cooldown keys embed the organization so tenants never
// contend for the same key.
const (
	KeyPrefixCooldown     = "cooldown:"
	KeyPrefixWarnThrottle = "warn:"
	KeyPrefixTrigger      = "trigger:"
)

const (
	FallbackAllow = "allow"
	FallbackDeny  = "deny"
)

const (
	DedupBackendPostgres = "postgres"
	DedupBackendRedis    = "redis"
)

const (
	MaxRiskScore = 100
	MinRiskScore = 0
)

// Platform default risk-band floors, used when an organization has no
// configured bands.
const (
	DefaultMediumFloor   = 50
	DefaultHighFloor     = 75
	DefaultCriticalFloor = 90
)

// System default alert policy applied when no row exists for org+level.
const (
	DefaultCooldownMinutes = 30
)

const (
	DefaultDetectionTopic = "detection_events"
	DefaultIntentTopic    = "notification_intents"
	DefaultAuditTopic     = "classification_audit"
)

const (
	WarnThrottleTTL = time.Hour
)
