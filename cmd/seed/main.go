// Command seed creates an admin account and a sample catalog
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"boutique/internal/config"
	"boutique/internal/database"
	"boutique/internal/domain"
	"boutique/internal/logger"
	"boutique/internal/repository"
	"boutique/internal/service"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type sampleProduct struct {
	title       string
	brand       string
	price       string
	description string
	imageURL    string
	category    string
}

var sampleCatalog = []sampleProduct{
	{"Prada Silk Dress", "Prada", "299.99", "Elegant silk dress for special occasions", "/images/dress1.jpg", "dresses"},
	{"Prada Cashmere Sweater", "Prada", "189.99", "Soft cashmere sweater for winter", "/images/sweater1.jpg", "tops"},
	{"Prada Trousers", "Prada", "159.99", "High-waisted designer trousers", "/images/trousers1.jpg", "bottoms"},
	{"Prada Handbag", "Prada", "399.99", "Genuine leather handbag", "/images/bag1.jpg", "accessories"},
	{"Gucci Blouse", "Gucci", "229.99", "Elegant silk blouse", "/images/blouse1.jpg", "tops"},
	{"Chanel Skirt", "Chanel", "179.99", "Classic A-line skirt", "/images/skirt1.jpg", "bottoms"},
}

type options struct {
	adminName     string
	adminEmail    string
	adminPassword string
	products      bool
	stock         int
}

type seeder struct {
	users    repository.UserRepository
	products repository.ProductRepository
	logger   *zap.Logger
}

// createAdmin inserts the admin account; an existing account is left untouched
func (s *seeder) createAdmin(ctx context.Context, opts options) error {
	if opts.adminPassword == "" {
		return errors.New("admin password is required (-admin-password or SEED_ADMIN_PASSWORD)")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(opts.adminPassword), service.BcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	admin := &domain.User{
		Email:        strings.ToLower(strings.TrimSpace(opts.adminEmail)),
		PasswordHash: string(hash),
		Name:         opts.adminName,
		Role:         domain.RoleAdmin,
	}
	if err := s.users.Create(ctx, admin); err != nil {
		if errors.Is(err, repository.ErrUserAlreadyExists) {
			s.logger.Info("Admin already exists", zap.String("email", admin.Email))
			return nil
		}
		return err
	}

	s.logger.Info("Admin created", zap.Int64("user_id", admin.ID), zap.String("email", admin.Email))
	return nil
}

// addProducts inserts the sample catalog unless the catalog already has products
func (s *seeder) addProducts(ctx context.Context, stock int) (int, error) {
	existing, err := s.products.ListAll(ctx)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		s.logger.Info("Catalog is not empty, skipping sample products", zap.Int("products", len(existing)))
		return 0, nil
	}

	for _, sample := range sampleCatalog {
		product := &domain.Product{
			Title:       sample.title,
			Brand:       sample.brand,
			Price:       decimal.RequireFromString(sample.price),
			Description: sample.description,
			ImageURL:    sample.imageURL,
			Category:    sample.category,
			Stock:       stock,
		}
		if err := s.products.Create(ctx, product); err != nil {
			return 0, fmt.Errorf("failed to add %s: %w", sample.title, err)
		}
		s.logger.Info("Product added", zap.Int64("product_id", product.ID), zap.String("title", product.Title))
	}

	return len(sampleCatalog), nil
}

func main() {
	var opts options
	flag.StringVar(&opts.adminName, "admin-name", "Admin User", "display name of the admin account")
	flag.StringVar(&opts.adminEmail, "admin-email", "admin@boutique.com", "email of the admin account")
	flag.StringVar(&opts.adminPassword, "admin-password", os.Getenv("SEED_ADMIN_PASSWORD"), "password of the admin account")
	flag.BoolVar(&opts.products, "products", true, "add the sample catalog when the catalog is empty")
	flag.IntVar(&opts.stock, "stock", 20, "stock of every sample product")
	flag.Parse()

	cfg := config.Load()
	log := logger.NewWithDefaults()
	defer log.Sync()

	dbService, err := database.New(cfg.Database, log)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer dbService.Close()

	if err := database.RunMigrations(dbService.DB(), log); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}

	s := &seeder{
		users:    repository.NewUserRepository(dbService.DB()),
		products: repository.NewProductRepository(dbService.DB()),
		logger:   log,
	}

	ctx := context.Background()
	if err := s.createAdmin(ctx, opts); err != nil {
		log.Fatal("Failed to create admin", zap.Error(err))
	}

	if opts.products {
		added, err := s.addProducts(ctx, opts.stock)
		if err != nil {
			log.Fatal("Failed to add sample products", zap.Error(err))
		}
		log.Info("Seeding complete", zap.Int("products_added", added))
	}
}
