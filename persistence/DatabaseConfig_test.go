package persistence_test

import (
	"database/sql"
	"os"
	"testing"

	"flowform/persistence"

	. "github.com/onsi/gomega"
)

func TestParseDatabaseConfigFromEnv(t *testing.T) {
	RegisterTestingT(t)

	t.Run("should report error when DATABASE_URL is absent or invalid", func(t *testing.T) {
		_ = os.Unsetenv("DATABASE_URL")
		_, err := persistence.ParseDatabaseConfigFromEnv()
		Expect(err).ToNot(BeNil())

		_ = os.Setenv("DATABASE_URL", "root:root@(127.0.0.1:3306)/flowform")
		_, err = persistence.ParseDatabaseConfigFromEnv()
		Expect(err).ToNot(BeNil())
		_ = os.Unsetenv("DATABASE_URL")
	})

	t.Run("should split driver type and args", func(t *testing.T) {
		_ = os.Setenv("DATABASE_URL", "mysql://root:root@(127.0.0.1:3306)/flowform?charset=utf8mb4")
		defer func() { _ = os.Unsetenv("DATABASE_URL") }()

		config, err := persistence.ParseDatabaseConfigFromEnv()
		Expect(err).To(BeNil())
		Expect(config.DriverType).To(Equal("mysql"))
		Expect(config.DriverArgs).To(Equal("root:root@(127.0.0.1:3306)/flowform?charset=utf8mb4"))
	})
}

func TestMysqlDriverRegistration(t *testing.T) {
	RegisterTestingT(t)

	t.Run("importing the persistence package should register the mysql driver", func(t *testing.T) {
		Expect(sql.Drivers()).To(ContainElement("mysql"))
	})
}
