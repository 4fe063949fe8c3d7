package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	logger "github.com/sirupsen/logrus"

	"intradaybot/src/model"
	"intradaybot/src/repository"
)

type orderSearcher interface {
	Search(ctx context.Context, options repository.OrderSearchOptions) ([]model.Order, error)
}

type journalLister interface {
	ListByRunDate(ctx context.Context, runDate string) ([]model.TradeJournalEntry, error)
}

// SearchOrdersHandler lists persisted orders newest first.
// Supports pagination and filters (symbol, status).
func SearchOrdersHandler(repo orderSearcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var symbol *string
		if symbolParam := r.URL.Query().Get("symbol"); symbolParam != "" {
			upper := strings.ToUpper(symbolParam)
			symbol = &upper
		}

		var status *string
		if statusParam := r.URL.Query().Get("status"); statusParam != "" {
			upper := strings.ToUpper(statusParam)
			if upper != "FILLED" && upper != "REJECTED" {
				http.Error(w, "invalid status", http.StatusBadRequest)
				return
			}
			status = &upper
		}

		page := 1
		if pageParam := r.URL.Query().Get("page"); pageParam != "" {
			parsedPage, err := strconv.Atoi(pageParam)
			if err != nil || parsedPage <= 0 {
				http.Error(w, "invalid page", http.StatusBadRequest)
				return
			}
			page = parsedPage
		}

		pageSize := 20
		if sizeParam := r.URL.Query().Get("pageSize"); sizeParam != "" {
			parsedSize, err := strconv.Atoi(sizeParam)
			if err != nil || parsedSize <= 0 {
				http.Error(w, "invalid pageSize", http.StatusBadRequest)
				return
			}
			pageSize = parsedSize
		}

		offset := (page - 1) * pageSize

		orders, err := repo.Search(r.Context(), repository.OrderSearchOptions{
			Symbol: symbol,
			Status: status,
			Limit:  pageSize,
			Offset: offset,
		})
		if err != nil {
			logger.WithError(err).Error("failed to search orders")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if orders == nil {
			orders = []model.Order{}
		}

		writeJSON(w, orders, "order search")
	}
}

// JournalHandler lists the trade journal of one run date (runDate, default
// today in UTC).
func JournalHandler(repo journalLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		runDate := r.URL.Query().Get("runDate")
		if runDate == "" {
			runDate = time.Now().UTC().Format("2006-01-02")
		} else if _, err := time.Parse("2006-01-02", runDate); err != nil {
			http.Error(w, "invalid runDate", http.StatusBadRequest)
			return
		}

		entries, err := repo.ListByRunDate(r.Context(), runDate)
		if err != nil {
			logger.WithError(err).Error("failed to list journal")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if entries == nil {
			entries = []model.TradeJournalEntry{}
		}

		writeJSON(w, entries, "journal")
	}
}

func writeJSON(w http.ResponseWriter, v interface{}, what string) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.WithError(err).Errorf("failed to encode %s response", what)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// DefaultSearchOrdersHandler wires the handler to the production repository implementation.
func DefaultSearchOrdersHandler() http.HandlerFunc {
	return SearchOrdersHandler(repository.NewOrderRepository())
}

// DefaultJournalHandler wires the handler to the production repository implementation.
func DefaultJournalHandler() http.HandlerFunc {
	return JournalHandler(repository.NewTradeJournalRepository())
}
