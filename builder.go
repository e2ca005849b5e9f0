package goPhoneAuth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/MrEthical07/goPhoneAuth/hashing"
	"github.com/MrEthical07/goPhoneAuth/internal/audit"
	"github.com/MrEthical07/goPhoneAuth/internal/codes"
	"github.com/MrEthical07/goPhoneAuth/internal/limiters"
	"github.com/MrEthical07/goPhoneAuth/internal/metrics"
	"github.com/MrEthical07/goPhoneAuth/internal/stores"
	"github.com/MrEthical07/goPhoneAuth/jwt"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

const mongoIndexTimeout = 10 * time.Second

// Builder assembles an [Engine]. Configure it during initialization, call
// Build once, then discard it.
type Builder struct {
	config Config
	redis  redis.UniversalClient
	mongo  *mongo.Database

	directory AccountDirectory
	sms       SMSSender
	clock     Clock
	hasher    CodeHasher
	generator CodeGenerator
	logger    *slog.Logger
	auditSink AuditSink

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis stores one-time codes in Redis. It is also required by the
// issue throttle.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithMongo stores one-time codes in the Config.Store.MongoCollection
// collection of db. Build creates the lookup index.
func (b *Builder) WithMongo(db *mongo.Database) *Builder {
	b.mongo = db
	return b
}

func (b *Builder) WithAccountDirectory(directory AccountDirectory) *Builder {
	b.directory = directory
	return b
}

func (b *Builder) WithSMSSender(sender SMSSender) *Builder {
	b.sms = sender
	return b
}

// WithClock replaces the wall clock. Token timestamps use it as well.
func (b *Builder) WithClock(clock Clock) *Builder {
	b.clock = clock
	return b
}

// WithCodeHasher replaces the default Argon2id code hasher.
func (b *Builder) WithCodeHasher(hasher CodeHasher) *Builder {
	b.hasher = hasher
	return b
}

// WithCodeGenerator replaces the crypto/rand code generator. Intended for
// tests.
func (b *Builder) WithCodeGenerator(generator CodeGenerator) *Builder {
	b.generator = generator
	return b
}

func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the engine. A Builder can
// only be built once.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.redis == nil && b.mongo == nil {
		return nil, errors.New("redis client or mongo database required")
	}
	if b.redis != nil && b.mongo != nil {
		return nil, errors.New("configure exactly one code store backend")
	}
	if cfg.IssueThrottle.Enabled && b.redis == nil {
		return nil, errors.New("IssueThrottle requires redis client")
	}
	if b.directory == nil {
		return nil, errors.New("account directory required")
	}
	if b.sms == nil {
		return nil, errors.New("sms sender required")
	}

	engine := &Engine{
		config:    cfg,
		clock:     b.clock,
		logger:    b.logger,
		directory: b.directory,
		sms:       b.sms,
		input:     newInputValidator(cfg),
	}
	if engine.clock == nil {
		engine.clock = SystemClock{}
	}
	if engine.logger == nil {
		engine.logger = slog.Default()
	}
	engine.logger = engine.logger.With(slog.String("component", "phoneauth"))

	// -------- CODE STORE --------
	if b.redis != nil {
		engine.codeStore = stores.NewRedisCodeStore(b.redis, cfg.Store.RedisPrefix, cfg.OTP.RecordRetention)
	} else {
		mongoStore := stores.NewMongoCodeStore(b.mongo.Collection(cfg.Store.MongoCollection))
		ctx, cancel := context.WithTimeout(context.Background(), mongoIndexTimeout)
		err := mongoStore.EnsureIndexes(ctx)
		cancel()
		if err != nil {
			return nil, err
		}
		engine.codeStore = mongoStore
	}

	// -------- CODE ISSUER / VERIFIER --------
	hasher := b.hasher
	if hasher == nil {
		argon, err := hashing.NewArgon2(hashing.DefaultArgon2Config())
		if err != nil {
			return nil, err
		}
		hasher = argon
	}
	generate := codes.NewCode
	if b.generator != nil {
		generate = codes.GenerateFunc(b.generator)
	}
	policy := codes.Policy{
		CodeLength:  cfg.OTP.CodeLength,
		Expiry:      cfg.OTP.Expiry,
		MaxAttempts: cfg.OTP.MaxAttempts,
	}
	engine.issuer = codes.NewIssuer(codes.IssuerDeps{
		Store:    engine.codeStore,
		Hasher:   hasher,
		Send:     engine.sendCode,
		Generate: generate,
		Policy:   policy,
		Now:      engine.now,
	})
	engine.verifier = codes.NewVerifier(codes.VerifierDeps{
		Store:  engine.codeStore,
		Hasher: hasher,
		Policy: policy,
		Now:    engine.now,
	})

	// -------- ISSUE THROTTLE --------
	if cfg.IssueThrottle.Enabled {
		engine.throttle = limiters.NewIssueThrottle(b.redis, limiters.IssueThrottleConfig{
			Prefix:      cfg.IssueThrottle.RedisPrefix,
			MaxRequests: cfg.IssueThrottle.MaxRequests,
			Window:      cfg.IssueThrottle.Window,
			PerIP:       cfg.IssueThrottle.PerIP,
		})
	}

	// -------- AUDIT / METRICS --------
	engine.metrics = metrics.New(metrics.Config{
		Enabled:       cfg.Metrics.Enabled,
		EnableLatency: cfg.Metrics.EnableLatencyHistograms,
	})
	engine.audit = audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
		OnDrop: func(audit.Event) {
			engine.metrics.Inc(metrics.MetricAuditDropped)
		},
	}, b.auditSink)

	// -------- TOKENS --------
	jm, err := jwt.NewManager(jwt.Config{
		AccessTTL:     cfg.JWT.AccessTTL,
		RefreshTTL:    cfg.JWT.RefreshTTL,
		SigningMethod: jwt.SigningMethod(cfg.JWT.SigningMethod),
		PrivateKey:    cloneBytes(cfg.JWT.PrivateKey),
		PublicKey:     cloneBytes(cfg.JWT.PublicKey),
		Issuer:        cfg.JWT.Issuer,
		Audience:      cfg.JWT.Audience,
		Leeway:        cfg.JWT.Leeway,
		KeyID:         cfg.JWT.KeyID,
		Now:           engine.now,
	})
	if err != nil {
		engine.Close()
		return nil, err
	}
	engine.jwtManager = jm

	b.built = true

	return engine, nil
}
