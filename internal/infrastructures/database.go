package infrastructures

import (
	"os"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func NewDatabase() *gorm.DB {
	// TranslateError maps unique violations to gorm.ErrDuplicatedKey, which the
	// idempotency guard and the ledger reference constraint depend on.
	db, err := gorm.Open(postgres.Open(os.Getenv("DATABASE_URL")), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		logrus.Fatalf("failed to connect database: %v", err)
	}
	return db
}
