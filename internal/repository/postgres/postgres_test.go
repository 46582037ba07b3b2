package postgres

import (
	"time"

	"gomarketplace/configs"
)

func testConfig() configs.Config {
	return configs.Config{
		DB: configs.DBConfig{
			Host:           "localhost",
			Port:           "5432",
			User:           "postgres",
			Password:       "postgres",
			Name:           "cart",
			ConnectTimeout: time.Second,
			Retries:        1,
		},
	}
}
