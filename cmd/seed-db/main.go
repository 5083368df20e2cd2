package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront-api/internal/domain/product"
	"github.com/xenking/storefront-api/internal/domain/promo"
	"github.com/xenking/storefront-api/internal/domain/user"
	"github.com/xenking/storefront-api/internal/repository"
)

type productJSON struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
}

func main() {
	var (
		databaseURL  string
		productsFile string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, productsFile); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile string) error {
	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedProducts(ctx, repository.NewProductRepository(pool), productsFile); err != nil {
		return errors.Wrap(err, "seed products")
	}

	if err := seedUsers(ctx, repository.NewUserRepository(pool)); err != nil {
		return errors.Wrap(err, "seed users")
	}

	if err := seedPromos(ctx, repository.NewPromoRepository(pool)); err != nil {
		return errors.Wrap(err, "seed promos")
	}

	return nil
}

func seedProducts(ctx context.Context, repo *repository.ProductRepository, productsFile string) error {
	slog.Info("reading products file", slog.String("path", productsFile))

	data, err := os.ReadFile(productsFile)
	if err != nil {
		return errors.Wrap(err, "read products file")
	}

	var products []productJSON
	if err := json.Unmarshal(data, &products); err != nil {
		return errors.Wrap(err, "parse products JSON")
	}

	slog.Info("inserting products", slog.Int("count", len(products)))

	for _, p := range products {
		id := p.ID
		if id == "" {
			id = uuid.New().String()
		}
		if err := repo.Create(ctx, &product.Product{
			ID:          id,
			Name:        p.Name,
			Description: p.Description,
			Price:       p.Price,
			Stock:       p.Stock,
		}); err != nil {
			// Re-running the seed against a populated catalog is fine.
			slog.Warn("skipping product", slog.String("id", id), slog.String("error", err.Error()))
			continue
		}

		slog.Info("inserted product", slog.String("id", id), slog.String("name", p.Name))
	}

	return nil
}

func seedUsers(ctx context.Context, repo *repository.UserRepository) error {
	slog.Info("seeding users")

	users := []user.User{
		{
			ID:    "00000000-0000-0000-0000-000000000001",
			Name:  "Store Admin",
			Email: "admin@storefront.test",
			Phone: "+6281234567890",
			Role:  user.RoleAdmin,
		},
		{
			ID:    "00000000-0000-0000-0000-000000000002",
			Name:  "Test Customer",
			Email: "customer@storefront.test",
			Phone: "+6280987654321",
			Role:  user.RoleUser,
		},
	}

	for i := range users {
		if err := repo.Upsert(ctx, &users[i]); err != nil {
			return errors.Wrapf(err, "upsert user %s", users[i].Email)
		}

		slog.Info("upserted user",
			slog.String("email", users[i].Email),
			slog.String("role", users[i].Role),
		)
	}

	return nil
}

func seedPromos(ctx context.Context, repo *repository.PromoRepository) error {
	slog.Info("seeding promos")

	now := time.Now().UTC()
	minWelcome := decimal.NewFromInt(50)
	maxPayday := decimal.NewFromInt(100)

	promos := []promo.Promo{
		{
			ID:             uuid.New().String(),
			Code:           "WELCOME10",
			Description:    "10% off your first order over 50",
			DiscountType:   promo.DiscountPercentage,
			DiscountValue:  decimal.NewFromInt(10),
			MinOrderAmount: &minWelcome,
			StartDate:      now,
			EndDate:        now.AddDate(1, 0, 0),
		},
		{
			ID:            uuid.New().String(),
			Code:          "PAYDAY",
			Description:   "25% off, capped at 100",
			DiscountType:  promo.DiscountPercentage,
			DiscountValue: decimal.NewFromInt(25),
			MaxDiscount:   &maxPayday,
			StartDate:     now,
			EndDate:       now.AddDate(0, 1, 0),
		},
		{
			ID:            uuid.New().String(),
			Code:          "FLAT15",
			Description:   "Flat 15 off any order",
			DiscountType:  promo.DiscountFlat,
			DiscountValue: decimal.NewFromInt(15),
			StartDate:     now,
			EndDate:       now.AddDate(0, 3, 0),
		},
	}

	for i := range promos {
		err := repo.Create(ctx, &promos[i])
		switch {
		case errors.Is(err, promo.ErrDuplicateCode):
			slog.Info("promo already present", slog.String("code", promos[i].Code))
		case err != nil:
			return errors.Wrapf(err, "insert promo %s", promos[i].Code)
		default:
			slog.Info("inserted promo",
				slog.String("code", promos[i].Code),
				slog.String("description", promos[i].Description),
			)
		}
	}

	return nil
}
