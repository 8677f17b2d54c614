// Command seed populates a development database with demo founders,
// products, votes and self-reported metrics so the leaderboard has
// something to rank.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/stackpitch/venturerank/internal/adapters/repository"
	"github.com/stackpitch/venturerank/internal/config"
	"github.com/stackpitch/venturerank/internal/domain/model"
	"github.com/stackpitch/venturerank/pkg/logger"
)

const seedTimeout = 2 * time.Minute

var categories = []string{"saas", "fintech", "health", "devtools", "marketplace"} //nolint:gochecknoglobals // demo data

func main() {
	var (
		founders = flag.Int("founders", 20, "number of demo founders")
		voters   = flag.Int("voters", 50, "number of demo voters")
		weeks    = flag.Int("weeks", 6, "weeks of traction history per founder")
		seed     = flag.Int64("seed", time.Now().UnixNano(), "random seed")
	)
	flag.Parse()

	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.Get()

	ctx, cancel := context.WithTimeout(context.Background(), seedTimeout)
	defer cancel()

	cfg, err := config.Load(ctx)
	if err != nil {
		log.Fatal(ctx, "failed to load config", logger.Error(err))
	}

	db, err := sqlx.ConnectContext(ctx, "postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatal(ctx, "failed to connect to postgres", logger.Error(err))
	}
	defer func() { _ = db.Close() }()

	rng := rand.New(rand.NewSource(*seed)) //nolint:gosec // demo data only
	if err := run(ctx, db, rng, *founders, *voters, *weeks); err != nil {
		log.Fatal(ctx, "seeding failed", logger.Error(err))
	}
	log.Info(ctx, "seed complete",
		logger.Int("founders", *founders),
		logger.Int("voters", *voters),
		logger.Int("weeks", *weeks),
	)
}

func run(ctx context.Context, db *sqlx.DB, rng *rand.Rand, founders, voters, weeks int) error {
	store := repository.NewPostgresStoreFromDB(db)
	now := time.Now()

	voterIDs := make([]int64, 0, voters)
	for i := 0; i < voters; i++ {
		id, err := insertUser(ctx, db, fmt.Sprintf("voter-%02d", i), "user")
		if err != nil {
			return err
		}
		voterIDs = append(voterIDs, id)
	}

	for i := 0; i < founders; i++ {
		founderID, err := insertUser(ctx, db, fmt.Sprintf("founder-%02d", i), "founder")
		if err != nil {
			return err
		}

		category := categories[rng.Intn(len(categories))]
		createdAt := now.AddDate(0, 0, -rng.Intn(400))
		var productID int64
		err = db.GetContext(ctx, &productID,
			`INSERT INTO products (user_id, title, category, created_at)
			 VALUES ($1, $2, $3, $4) RETURNING id`,
			founderID, fmt.Sprintf("startup-%02d", i), category, createdAt)
		if err != nil {
			return fmt.Errorf("insert product: %w", err)
		}

		// Votes go through the store so the denormalized aggregates are
		// maintained the same way production writes maintain them.
		for _, voterID := range voterIDs {
			if rng.Float64() > 0.4 {
				continue
			}
			if err := store.UpsertVote(ctx, productID, voterID, 1+rng.Intn(5)); err != nil {
				return fmt.Errorf("seed vote: %w", err)
			}
		}

		users := 100 + rng.Float64()*5000
		revenue := rng.Float64() * 20000
		for day := 35; day >= 0; day -= 7 {
			recorded := now.AddDate(0, 0, -day)
			users *= 1 + (rng.Float64()-0.3)/5
			revenue *= 1 + (rng.Float64()-0.3)/4
			for name, value := range map[string]float64{
				model.MetricUsers:   users,
				model.MetricRevenue: revenue,
			} {
				err := store.AddMetricSnapshot(ctx, model.MetricSnapshot{
					UserID:       founderID,
					MetricName:   name,
					MetricValue:  value,
					RecordedDate: recorded,
				})
				if err != nil {
					return fmt.Errorf("seed metric: %w", err)
				}
			}
		}

		for w := 0; w < weeks; w++ {
			year, week := now.AddDate(0, 0, -7*w).ISOWeek()
			err := store.UpsertWeeklyTraction(ctx, model.WeeklyTraction{
				UserID:        founderID,
				Year:          year,
				WeekNumber:    week,
				RevenueAmount: rng.Float64() * 5000,
				NewUsers:      rng.Intn(200),
				ActiveUsers:   50 + rng.Intn(1000),
				ChurnedUsers:  rng.Intn(30),
			})
			if err != nil {
				return fmt.Errorf("seed traction: %w", err)
			}
		}
	}
	return nil
}

// insertUser creates a demo user with a collision-free email.
func insertUser(ctx context.Context, db *sqlx.DB, name, role string) (int64, error) {
	var id int64
	email := fmt.Sprintf("%s-%s@example.com", name, uuid.NewString()[:8])
	err := db.GetContext(ctx, &id,
		`INSERT INTO users (name, email, role) VALUES ($1, $2, $3) RETURNING id`,
		name, email, role)
	if err != nil {
		return 0, fmt.Errorf("insert user %s: %w", name, err)
	}
	return id, nil
}
