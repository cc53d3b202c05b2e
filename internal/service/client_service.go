package service

import (
	"errors"
	"fmt"

	"go-pedidos-api/internal/model"
	"go-pedidos-api/internal/repository"
	"go-pedidos-api/pkg/validator"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ClientService interface {
	CreateClient(req *model.Client, userID string) error
	UpdateClient(id uuid.UUID, req *model.Client, userID string) (*model.Client, error)
	DeleteClient(id uuid.UUID) error
	GetClient(id uuid.UUID) (*model.Client, error)
	GetAllClients() ([]model.Client, error)
}

type clientService struct {
	clientRepo repository.ClientRepository
	orderRepo  repository.OrderRepository
}

func NewClientService(cRepo repository.ClientRepository, oRepo repository.OrderRepository) ClientService {
	return &clientService{clientRepo: cRepo, orderRepo: oRepo}
}

func (s *clientService) CreateClient(req *model.Client, userID string) error {
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		first := errs[0]
		return validationErrorf("field '%s' failed on tag '%s'", first.FailedField, first.Tag)
	}

	req.CreatedBy = userID
	req.UpdatedBy = userID
	return s.clientRepo.Create(req)
}

func (s *clientService) UpdateClient(id uuid.UUID, req *model.Client, userID string) (*model.Client, error) {
	existing, err := s.clientRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClientNotFound
		}
		return nil, err
	}

	existing.Name = req.Name
	existing.TaxID = req.TaxID
	existing.Address = req.Address
	existing.Phone = req.Phone
	existing.Email = req.Email
	existing.Section = req.Section
	existing.UpdatedBy = userID

	if errs := validator.ValidateStruct(existing); len(errs) > 0 {
		first := errs[0]
		return nil, validationErrorf("field '%s' failed on tag '%s'", first.FailedField, first.Tag)
	}

	if err := s.clientRepo.Update(existing); err != nil {
		return nil, err
	}
	return existing, nil
}

func (s *clientService) DeleteClient(id uuid.UUID) error {
	if _, err := s.clientRepo.FindByID(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrClientNotFound
		}
		return err
	}

	count, err := s.orderRepo.CountByClient(id)
	if err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%w: %d orders", ErrClientHasOrders, count)
	}

	return s.clientRepo.Delete(id)
}

func (s *clientService) GetClient(id uuid.UUID) (*model.Client, error) {
	client, err := s.clientRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClientNotFound
		}
		return nil, err
	}
	return client, nil
}

func (s *clientService) GetAllClients() ([]model.Client, error) {
	return s.clientRepo.FindAll()
}
