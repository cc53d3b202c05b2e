package service

import (
	"time"

	"go-pedidos-api/internal/repository"
)

type DashboardService interface {
	GetStockMovement(days int) ([]repository.StockMovementData, error)
	GetDashboardStats() (*repository.DashboardStats, error)
	GetTopSold(limit int) ([]repository.TopSoldProduct, error)
}

type dashboardService struct {
	movementRepo repository.MovementRepository
}

func NewDashboardService(movementRepo repository.MovementRepository) DashboardService {
	return &dashboardService{movementRepo: movementRepo}
}

func (s *dashboardService) GetStockMovement(days int) ([]repository.StockMovementData, error) {
	endDate := time.Now()
	startDate := endDate.AddDate(0, 0, -days)

	return s.movementRepo.GetStockMovement(startDate, endDate)
}

func (s *dashboardService) GetDashboardStats() (*repository.DashboardStats, error) {
	return s.movementRepo.GetDashboardStats()
}

func (s *dashboardService) GetTopSold(limit int) ([]repository.TopSoldProduct, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	return s.movementRepo.GetTopSold(limit)
}
