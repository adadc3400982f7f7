// Package shared builds the dependencies common to the API server and the admin CLI.
package shared

import (
	"context"
	"io"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/ukmiverse/ukmiverse/core"
	"github.com/ukmiverse/ukmiverse/core/avatar"
	"github.com/ukmiverse/ukmiverse/core/club"
	"github.com/ukmiverse/ukmiverse/core/user"
	cachesvc "github.com/ukmiverse/ukmiverse/services/cache"
	probesvc "github.com/ukmiverse/ukmiverse/services/probe"
	uploadsvc "github.com/ukmiverse/ukmiverse/services/upload"
	"github.com/ukmiverse/ukmiverse/storage/database"
	inmemdb "github.com/ukmiverse/ukmiverse/storage/database/inmem"
	sqlxrepos "github.com/ukmiverse/ukmiverse/storage/database/sqlx"
)

const engineMemory = "memory"

func NewValidator() (*validator.Validate, ut.Translator) {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")

	validate := validator.New()
	core.InitValidators(validate, translator)
	avatar.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	return validate, translator
}

// Storage holds the repositories of the configured database engine.
type Storage struct {
	Users user.Repository
	Clubs club.Repository

	// DB is nil with the memory engine.
	DB     *sqlx.DB
	closer io.Closer
}

func (s *Storage) Close() error {
	return s.closer.Close()
}

// OpenStorage connects the configured database engine. Postgres databases are created and,
// when migrate is set, migrated up first.
func OpenStorage(ctx context.Context, conf *core.Config, migrate bool) (*Storage, error) {
	if conf.Database.Engine == engineMemory {
		db := inmemdb.Open()
		return &Storage{
			Users:  inmemdb.NewUserRepository(db),
			Clubs:  inmemdb.NewClubRepository(db),
			closer: db,
		}, nil
	}

	if err := database.CreateIfNotExist(ctx, conf); err != nil {
		return nil, err
	}
	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}
	if migrate {
		if err = database.Migrate(ctx, db, "up"); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return &Storage{
		Users:  sqlxrepos.NewUserRepository(db),
		Clubs:  sqlxrepos.NewClubRepository(db),
		DB:     db,
		closer: db,
	}, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func NewUploadStore(conf *core.Config, logger core.Logger) (*uploadsvc.Store, error) {
	return uploadsvc.NewStore(conf.Avatar.UploadDir, conf.Avatar.MaxUploadSize, logger)
}

// NewAvatarService wires the HTTP prober, the configured probe cache and the fallback chains.
// Uploaded avatars are checked on disk. The returned Closer releases the cache connection.
func NewAvatarService(ctx context.Context, conf *core.Config, uploads *uploadsvc.Store, logger core.Logger) (*avatar.Service, io.Closer, error) {
	var (
		cache  avatar.Cache
		closer io.Closer = nopCloser{}
	)
	switch conf.Avatar.Cache {
	case "redis":
		rdb, err := cachesvc.Connect(ctx, conf.Redis)
		if err != nil {
			return nil, nil, err
		}
		cache = cachesvc.NewRedisCache(rdb, conf.Redis.CacheTTL, logger)
		closer = rdb
	case "none":
		cache = avatar.NoCache()
	case "", "memory":
		cache = avatar.NewMemoryCache()
	default:
		return nil, nil, errors.Errorf("unknown avatar cache %q", conf.Avatar.Cache)
	}

	prober := probesvc.NewHTTPProber(
		probesvc.WithUserAgent(conf.AppName+"-avatar-probe/"+conf.Build),
		probesvc.WithAllowPrivate(conf.Avatar.ProbePrivateNetworks),
	)
	validator := avatar.NewValidator(
		uploads.Prober(conf.Avatar.BaseURL, prober),
		avatar.WithCache(cache),
		avatar.WithTimeout(conf.Avatar.ProbeTimeout),
		avatar.WithBaseURL(conf.Avatar.BaseURL),
		avatar.WithPolicy(avatar.Policy{PageSecure: conf.Avatar.PageSecure, AllowInsecure: conf.Avatar.AllowInsecure}),
	)

	fallbacks := make([]string, 0, len(conf.Avatar.Fallbacks)+len(conf.Avatar.EmergencyFallbacks))
	fallbacks = append(fallbacks, conf.Avatar.Fallbacks...)
	fallbacks = append(fallbacks, conf.Avatar.EmergencyFallbacks...)

	svc := avatar.NewService(validator, avatar.Config{
		Fallbacks:    fallbacks,
		DefaultColor: conf.Avatar.DefaultColor,
		Recommend: avatar.RecommendOptions{
			BatchSize: conf.Avatar.BatchSize,
			Pause:     conf.Avatar.BatchPause,
			Timeout:   conf.Avatar.BulkTimeout,
		},
	}, logger)
	return svc, closer, nil
}
