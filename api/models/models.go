// Package models tracks all api models for request and responses
package models

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/aouyang1/ratedisplay/store"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// CreateRatesRequest carries all eight prices; pointers distinguish missing from zero.
type CreateRatesRequest struct {
	Gold24kSale         *decimal.Decimal `json:"gold_24k_sale"`
	Gold24kPurchase     *decimal.Decimal `json:"gold_24k_purchase"`
	Gold22kSale         *decimal.Decimal `json:"gold_22k_sale"`
	Gold22kPurchase     *decimal.Decimal `json:"gold_22k_purchase"`
	Gold18kSale         *decimal.Decimal `json:"gold_18k_sale"`
	Gold18kPurchase     *decimal.Decimal `json:"gold_18k_purchase"`
	SilverPerKgSale     *decimal.Decimal `json:"silver_per_kg_sale"`
	SilverPerKgPurchase *decimal.Decimal `json:"silver_per_kg_purchase"`
}

// Snapshot validates the request and converts it into a rate snapshot.
func (r CreateRatesRequest) Snapshot() (store.RateSnapshot, error) {
	fields := []struct {
		name  string
		value *decimal.Decimal
	}{
		{"gold_24k_sale", r.Gold24kSale},
		{"gold_24k_purchase", r.Gold24kPurchase},
		{"gold_22k_sale", r.Gold22kSale},
		{"gold_22k_purchase", r.Gold22kPurchase},
		{"gold_18k_sale", r.Gold18kSale},
		{"gold_18k_purchase", r.Gold18kPurchase},
		{"silver_per_kg_sale", r.SilverPerKgSale},
		{"silver_per_kg_purchase", r.SilverPerKgPurchase},
	}
	for _, f := range fields {
		if f.value == nil {
			return store.RateSnapshot{}, fmt.Errorf("%s is required", f.name)
		}
		if f.value.IsNegative() {
			return store.RateSnapshot{}, fmt.Errorf("%s must not be negative", f.name)
		}
	}

	return store.RateSnapshot{
		Gold24kSale:         *r.Gold24kSale,
		Gold24kPurchase:     *r.Gold24kPurchase,
		Gold22kSale:         *r.Gold22kSale,
		Gold22kPurchase:     *r.Gold22kPurchase,
		Gold18kSale:         *r.Gold18kSale,
		Gold18kPurchase:     *r.Gold18kPurchase,
		SilverPerKgSale:     *r.SilverPerKgSale,
		SilverPerKgPurchase: *r.SilverPerKgPurchase,
	}, nil
}

// RegisterFileRequest names a file already on disk under the upload directory. Folder
// selects a nested directory such as the s3 mirror.
type RegisterFileRequest struct {
	FileName string `json:"file_name"`
	Folder   string `json:"folder,omitempty"`
	Active   *bool  `json:"active"`
}

type RegisterFileResponse struct {
	FileName string `json:"file_name"`
	ID       int64  `json:"id"`
	Created  bool   `json:"created"`
	Message  string `json:"message"`
}

type BannerUploadResponse struct {
	BannerImageURL string                `json:"banner_image_url"`
	Banner         *store.BannerSettings `json:"banner"`
	Message        string                `json:"message"`
}

type SystemInfoResponse struct {
	Status           string `json:"status"`
	ListenAddr       string `json:"listen_addr"`
	StorageUsedBytes int64  `json:"storage_used_bytes"`
	MediaCount       int    `json:"media_count"`
	PromoCount       int    `json:"promo_count"`
	DisplayMode      string `json:"display_mode"`
	LastSync         string `json:"last_sync,omitempty"`
}
