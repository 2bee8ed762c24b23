package domain

import (
	"context"
	"errors"
)

type Service interface {
	List(context.Context) ([]Table, error)
	Get(context.Context, int) (Table, error)
	Occupy(context.Context, int) (Table, error)
	Release(context.Context, int) (Table, error)
}

var (
	ErrInvalidNumber = errors.New("invalid_table_number")
	ErrNotFound      = errors.New("not_found")
)
