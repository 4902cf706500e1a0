package models

import "time"

type Reservation struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"user_id"`
	CottageID      string    `json:"cottage_id"`
	CottageName    string    `json:"cottage_name"`
	CottagePrice   float64   `json:"cottage_price"`
	GuestName      string    `json:"guest_name"`
	Email          string    `json:"email"`
	ContactNumber  string    `json:"contact_number"`
	NumberOfGuests int64     `json:"number_of_guest"`
	Address        string    `json:"address"`
	CheckIn        time.Time `json:"check_in"`
	CheckOut       time.Time `json:"check_out"`
	Payment        string    `json:"payment"`
	ProofOfPayment string    `json:"proof_of_payment"`
	TotalAmount    float64   `json:"total_amount"`
	Status         string    `json:"status"` // pending, confirmed, cancelled, completed
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	Version        int64     `json:"version"`
}
