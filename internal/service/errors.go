package service

import (
	"errors"

	"github.com/KotFed0t/stocks_tracker_bot/internal/model"
)

var (
	ErrNotFound    = errors.New("error not found")
	ErrEmptyTicker = model.ErrEmptyTicker
	// состав списка изменился с момента чтения
	ErrListChanged = errors.New("list changed")
)
