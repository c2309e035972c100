package model

import (
	"time"
)

type Product struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Price         float64   `json:"price"`
	StockQuantity int       `json:"stock_quantity"`
	IsActive      bool      `json:"is_active"`
	Images        []string  `json:"images,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

type User struct {
	ID              string    `json:"id"`
	Email           string    `json:"email"`
	Phone           string    `json:"phone,omitempty"`
	FirstName       string    `json:"first_name"`
	LastName        string    `json:"last_name"`
	CreditLimit     float64   `json:"credit_limit"`
	AvailableCredit float64   `json:"available_credit"`
	CreatedAt       time.Time `json:"created_at"`
}

const (
	CreditRequestPending  = "PENDING"
	CreditRequestApproved = "APPROVED"
	CreditRequestRejected = "REJECTED"
)

type CreditRequest struct {
	ID              string     `json:"id"`
	UserID          string     `json:"user_id"`
	PurchaseAmount  float64    `json:"purchase_amount"`
	DesiredDuration int        `json:"desired_duration"`
	Reason          string     `json:"reason,omitempty"`
	Status          string     `json:"status"`
	SubmittedAt     time.Time  `json:"submitted_at"`
	ReviewedAt      *time.Time `json:"reviewed_at,omitempty"`
	ExpiresAt       time.Time  `json:"expires_at"`
}
