package model

// DashboardStats carries the admin home counters reported by the API.
type DashboardStats struct {
	TotalUsers   int64 `json:"totalUsers"`
	TodayOrders  int64 `json:"todayOrders"`
	TotalRevenue int64 `json:"totalRevenue"`
}
