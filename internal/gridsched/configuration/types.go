package configuration

import (
	"fmt"
	"time"
)

type GridschedConfig struct {
	// Identity of this server in the peer graph.
	ServerID string
	// Address the peer HTTP API listens on, e.g. ":7070".
	ListenAddress string
	MetricsPort   uint16

	Peers []PeerConfig

	Scheduling SchedulingConfig
}

type PeerConfig struct {
	ID string
	// Base url of the peer's HTTP API, e.g. "http://peer-b:7070".
	Url string
	// Static per-link migration cost. Zero means use MigrateCostDefault.
	MigrateCost float64
}

type SchedulingConfig struct {
	// Age at which status entries and queued jobs are pruned. Zero disables
	// expiry and switches fitness to pure age weighting.
	ExpireAfter time.Duration
	// Per-second weight of queued waiting time in fitness when expiry is off.
	AgeMult float64
	// Weight of the expiry-risk term in fitness when expiry is on.
	ExpireMult float64
	// Max jobs migrated or returned per tick.
	MigrateLimit int
	// Minimum remote fitness advantage required before a job is hinted away.
	MigrateMargin float64
	// Migration cost for peers without an explicit override.
	MigrateCostDefault float64
	// Failed pushes tolerated before a schedule hint is cleared.
	MaxMigrateAttempts int
	TickInterval       time.Duration
	TickBudget         time.Duration
	// Submission backpressure. Zero means unbounded.
	QueueCap int
	// Window of recent paid prices used when updating a resource price.
	PriceHistoryWindow int
	// Upward price pressure applied per unit of load.
	PricePressure float64
	// Cputime handed out with empty jobs so idle resources sleep between polls.
	SleepCPUTime int64
	// Deadlines for the three peer calls.
	PushTimeout     time.Duration
	SnapshotTimeout time.Duration
}

func DefaultSchedulingConfig() SchedulingConfig {
	return SchedulingConfig{
		ExpireAfter:        600 * time.Second,
		AgeMult:            0.01,
		ExpireMult:         50,
		MigrateLimit:       16,
		MigrateMargin:      0,
		MigrateCostDefault: 1.0,
		MaxMigrateAttempts: 3,
		TickInterval:       time.Second,
		TickBudget:         60 * time.Second,
		QueueCap:           0,
		PriceHistoryWindow: 8,
		PricePressure:      1.0,
		SleepCPUTime:       60,
		PushTimeout:        5 * time.Second,
		SnapshotTimeout:    10 * time.Second,
	}
}

func (c *GridschedConfig) Validate() error {
	if c.ServerID == "" {
		return fmt.Errorf("serverId must be set")
	}
	seen := map[string]bool{}
	for _, peer := range c.Peers {
		if peer.ID == "" {
			return fmt.Errorf("peer with empty id")
		}
		if peer.ID == c.ServerID {
			return fmt.Errorf("peer %s has same id as this server", peer.ID)
		}
		if seen[peer.ID] {
			return fmt.Errorf("duplicate peer id %s", peer.ID)
		}
		seen[peer.ID] = true
		if peer.MigrateCost < 0 {
			return fmt.Errorf("peer %s has negative migrate cost", peer.ID)
		}
	}
	return c.Scheduling.Validate()
}

func (c *SchedulingConfig) Validate() error {
	if c.ExpireAfter < 0 {
		return fmt.Errorf("expireAfter must not be negative")
	}
	if c.MigrateLimit <= 0 {
		return fmt.Errorf("migrateLimit must be positive")
	}
	if c.MaxMigrateAttempts <= 0 {
		return fmt.Errorf("maxMigrateAttempts must be positive")
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("tickInterval must be positive")
	}
	if c.TickBudget <= 0 {
		return fmt.Errorf("tickBudget must be positive")
	}
	if c.QueueCap < 0 {
		return fmt.Errorf("queueCap must not be negative")
	}
	if c.PriceHistoryWindow <= 0 {
		return fmt.Errorf("priceHistoryWindow must be positive")
	}
	if c.MigrateCostDefault < 0 {
		return fmt.Errorf("migrateCostDefault must not be negative")
	}
	return nil
}
