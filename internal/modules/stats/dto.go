package stats

import "time"

type Dashboard struct {
	TotalRevenue   int64 `json:"total_revenue"`
	ActiveSessions int64 `json:"active_sessions"`
	TotalLots      int64 `json:"total_lots"`
	TotalDrivers   int64 `json:"total_drivers"`
	OccupiedSpots  int64 `json:"occupied_spots"`
	TotalSpots     int64 `json:"total_spots"`
	// OccupancyRate is a rounded percentage over all lots.
	OccupancyRate int `json:"occupancy_rate"`
}

type RevenueWindow struct {
	From    *time.Time `json:"from,omitempty"`
	To      *time.Time `json:"to,omitempty"`
	Revenue int64      `json:"revenue"`
}

type HourBucket struct {
	Hour     string `json:"hour"`
	Revenue  int64  `json:"revenue"`
	Sessions int    `json:"sessions"`
}

type ActivityItem struct {
	SessionID   int64      `json:"session_id"`
	Username    string     `json:"username"`
	LotName     string     `json:"lot_name"`
	VehicleType string     `json:"vehicle_type"`
	Status      string     `json:"status"`
	StartTime   time.Time  `json:"start_time"`
	EndTime     *time.Time `json:"end_time,omitempty"`
	TotalAmount int64      `json:"total_amount"`
	CreatedAt   time.Time  `json:"created_at"`
}
