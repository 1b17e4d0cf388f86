package app

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/nekogravitycat/shareit-backend/internal/api"
	"github.com/nekogravitycat/shareit-backend/internal/auth"
	"github.com/nekogravitycat/shareit-backend/internal/booking"
	"github.com/nekogravitycat/shareit-backend/internal/config"
	"github.com/nekogravitycat/shareit-backend/internal/item"
	"github.com/nekogravitycat/shareit-backend/internal/pkg/clock"
	"github.com/nekogravitycat/shareit-backend/internal/user"
)

// Config holds the dependencies and settings required to start the application.
type Config struct {
	IsProduction bool
	ProdOrigins  string
	// DBPool selects the Postgres repositories. When nil, in-memory repositories are used.
	DBPool     *pgxpool.Pool
	JWTSecret  string
	JWTTTL     time.Duration
	BcryptCost int
	RateLimit  config.RateLimitConfig
	Logger     zerolog.Logger
	// Clock defaults to the real UTC clock.
	Clock clock.Clock
}

// Container holds the initialized components that are needed externally.
type Container struct {
	Router         *gin.Engine
	JWTManager     *auth.JWTManager
	UserService    user.Service
	ItemService    item.Service
	BookingService booking.Service
}

type repositories struct {
	users    user.Repository
	items    item.Repository
	bookings booking.Repository
}

func newRepositories(pool *pgxpool.Pool, clk clock.Clock) repositories {
	if pool == nil {
		return newMemoryRepositories(clk)
	}
	return repositories{
		users:    user.NewPgxRepository(pool),
		items:    item.NewPgxRepository(pool),
		bookings: booking.NewPgxRepository(pool),
	}
}

// newMemoryRepositories links the in-memory stores the way the foreign keys of
// schema.sql link the tables: deletes cascade and names are read live.
func newMemoryRepositories(clk clock.Clock) repositories {
	users := user.NewMemoryRepository(clk)
	items := item.NewMemoryRepository(clk)
	bookings := booking.NewMemoryRepository(clk)

	users.OnDelete(func(ctx context.Context, id int64) {
		items.DeleteByOwner(ctx, id)
		items.DeleteCommentsByAuthor(ctx, id)
		bookings.DeleteByBooker(ctx, id)
	})
	items.OnDelete(bookings.DeleteByItem)

	userName := func(ctx context.Context, id int64) (string, bool) {
		u, err := users.GetByID(ctx, id)
		if err != nil {
			return "", false
		}
		return u.Name, true
	}
	items.SetAuthorResolver(userName)
	bookings.SetNameResolver(func(ctx context.Context, b *booking.Booking) {
		if it, err := items.GetByID(ctx, b.ItemID); err == nil {
			b.ItemName = it.Name
		}
		if name, ok := userName(ctx, b.BookerID); ok {
			b.BookerName = name
		}
	})

	return repositories{users: users, items: items, bookings: bookings}
}

// NewContainer initializes all modules and returns the container.
func NewContainer(cfg Config) *Container {
	clk := cfg.Clock
	if clk == nil {
		clk = clock.NewRealClock()
	}

	// Init Components
	passwordHasher := auth.NewBcryptPasswordHasherWithCost(cfg.BcryptCost)
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL)
	repos := newRepositories(cfg.DBPool, clk)

	// User Module
	userService := user.NewService(repos.users, passwordHasher, cfg.Logger)

	// Booking Module
	bookingService := booking.NewService(
		repos.bookings,
		userDirectory{users: userService},
		itemDirectory{items: repos.items},
		clk,
		cfg.Logger,
	)

	// Item Module
	itemService := item.NewService(repos.items, userService, bookingService, cfg.Logger)

	// API Router Config
	routerParams := api.Config{
		IsProduction:   cfg.IsProduction,
		ProdOrigins:    cfg.ProdOrigins,
		RateLimit:      cfg.RateLimit,
		Logger:         cfg.Logger,
		UserService:    userService,
		ItemService:    itemService,
		BookingService: bookingService,
		JWTManager:     jwtManager,
	}

	return &Container{
		Router:         api.NewRouter(routerParams),
		JWTManager:     jwtManager,
		UserService:    userService,
		ItemService:    itemService,
		BookingService: bookingService,
	}
}
