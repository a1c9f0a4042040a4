package data

import (
	"errors"
	"fmt"

	"github.com/hatchpay/offramp-backend/db"
)

var (
	ErrRecordNotFound      = errors.New("record not found")
	ErrRecordAlreadyExists = errors.New("record already exists")
)

type Models struct {
	Transactions     *TransactionModel
	AuditEvents      *AuditEventModel
	DBConnectionPool db.DBConnectionPool
}

func NewModels(dbConnectionPool db.DBConnectionPool) (*Models, error) {
	if dbConnectionPool == nil {
		return nil, fmt.Errorf("dbConnectionPool is required for NewModels")
	}

	return &Models{
		Transactions:     NewTransactionModel(dbConnectionPool),
		AuditEvents:      NewAuditEventModel(dbConnectionPool),
		DBConnectionPool: dbConnectionPool,
	}, nil
}
