package config

import (
	"time"

	"wallet-engine/src/pkg/databases/mysql"
	"wallet-engine/src/pkg/log"

	"github.com/spf13/viper"
)

func NewDatabase(viper *viper.Viper, log log.Log) (mysql.DBInterface, error) {
	db, err := mysql.InitConnection(mysql.Cfg{
		DSN:             viper.GetString("remote_ledger.dsn"),
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 30 * time.Minute,
	}, log)
	if err != nil {
		log.Error("database init", err.Error(), "config", "")
		return nil, err
	}
	return db, nil
}
