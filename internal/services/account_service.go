package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"synergyfoods/internal/domain"
	"synergyfoods/internal/repos"
	"synergyfoods/internal/validate"
)

// AccountService serves the customer area. Every method is scoped to the
// calling user's id; other customers' rows read as not found.
type AccountService struct {
	Users     *repos.UserRepo
	Addresses *repos.AddressRepo
	Orders    *repos.OrderRepo
}

func NewAccountService(users *repos.UserRepo, addrs *repos.AddressRepo, orders *repos.OrderRepo) *AccountService {
	return &AccountService{Users: users, Addresses: addrs, Orders: orders}
}

type ProfileInput struct {
	Name  string `json:"name" form:"name" validate:"required,max=80"`
	Phone string `json:"phone" form:"phone" validate:"max=20"`
}

type AddressInput struct {
	Label      string `json:"label" form:"label" validate:"max=40"`
	FullName   string `json:"fullName" form:"fullName" validate:"required,max=80"`
	Phone      string `json:"phone" form:"phone" validate:"max=20"`
	Line1      string `json:"line1" form:"line1" validate:"required,max=120"`
	Line2      string `json:"line2" form:"line2" validate:"max=120"`
	City       string `json:"city" form:"city" validate:"required,max=80"`
	State      string `json:"state" form:"state" validate:"max=80"`
	PostalCode string `json:"postalCode" form:"postalCode" validate:"required"`
	Country    string `json:"country" form:"country" validate:"required,len=2"`
	IsDefault  bool   `json:"isDefault" form:"isDefault"`
}

func (s *AccountService) Profile(ctx context.Context, userID string) (*domain.User, error) {
	u, err := s.Users.ByID(ctx, userID)
	return u, lookup(err, "user")
}

func (s *AccountService) UpdateProfile(ctx context.Context, userID string, in ProfileInput) (*domain.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := check(in); err != nil {
		return nil, err
	}
	phone, ok := validate.Phone(in.Phone)
	if !ok {
		return nil, invalid("phone", "is invalid")
	}
	if err := s.Users.UpdateProfile(ctx, userID, in.Name, phone); err != nil {
		return nil, err
	}
	return s.Profile(ctx, userID)
}

// cleanAddress validates in and normalises postal code, phone and country.
func cleanAddress(in AddressInput) (AddressInput, error) {
	in.Country = strings.ToUpper(strings.TrimSpace(in.Country))
	if err := check(in); err != nil {
		return in, err
	}
	pc, ok := validate.PostalCode(in.PostalCode)
	if !ok {
		return in, invalid("postalCode", "is invalid")
	}
	phone, ok := validate.Phone(in.Phone)
	if !ok {
		return in, invalid("phone", "is invalid")
	}
	in.PostalCode, in.Phone = pc, phone
	return in, nil
}

func (s *AccountService) ListAddresses(ctx context.Context, userID string) ([]domain.Address, error) {
	return s.Addresses.ListByUser(ctx, userID)
}

func (s *AccountService) Address(ctx context.Context, userID, id string) (domain.Address, error) {
	a, err := s.Addresses.Get(ctx, userID, id)
	return a, lookup(err, "address")
}

func (s *AccountService) CreateAddress(ctx context.Context, userID string, in AddressInput) (domain.Address, error) {
	in, err := cleanAddress(in)
	if err != nil {
		return domain.Address{}, err
	}
	a := domain.Address{
		ID: uuid.NewString(), UserID: userID, Label: in.Label, FullName: in.FullName, Phone: in.Phone,
		Line1: in.Line1, Line2: in.Line2, City: in.City, State: in.State, PostalCode: in.PostalCode,
		Country: in.Country, IsDefault: in.IsDefault,
	}
	if err := s.Addresses.Create(ctx, &a); err != nil {
		return a, store(err, "create address")
	}
	return a, nil
}

func (s *AccountService) UpdateAddress(ctx context.Context, userID, id string, in AddressInput) (domain.Address, error) {
	in, err := cleanAddress(in)
	if err != nil {
		return domain.Address{}, err
	}
	a, err := s.Addresses.Get(ctx, userID, id)
	if err != nil {
		return a, lookup(err, "address")
	}
	a.Label, a.FullName, a.Phone, a.Line1, a.Line2 = in.Label, in.FullName, in.Phone, in.Line1, in.Line2
	a.City, a.State, a.PostalCode, a.Country = in.City, in.State, in.PostalCode, in.Country
	if err := s.Addresses.Update(ctx, &a); err != nil {
		return a, lookup(err, "address")
	}
	if in.IsDefault && !a.IsDefault {
		if err := s.Addresses.SetDefault(ctx, userID, id); err != nil {
			return a, lookup(err, "address")
		}
	}
	return s.Address(ctx, userID, id)
}

func (s *AccountService) DeleteAddress(ctx context.Context, userID, id string) error {
	return lookup(s.Addresses.Delete(ctx, userID, id), "address")
}

func (s *AccountService) SetDefaultAddress(ctx context.Context, userID, id string) error {
	return lookup(s.Addresses.SetDefault(ctx, userID, id), "address")
}

func (s *AccountService) ListOrders(ctx context.Context, userID string) ([]domain.Order, error) {
	return s.Orders.ListByUser(ctx, userID)
}

// Order returns the detail of one of the user's orders.
func (s *AccountService) Order(ctx context.Context, userID, id string) (domain.OrderDetail, error) {
	o, err := s.Orders.Get(ctx, id)
	if err != nil {
		return domain.OrderDetail{}, lookup(err, "order")
	}
	if o.UserID == "" || o.UserID != userID {
		return domain.OrderDetail{}, fmt.Errorf("order: %w", ErrNotFound)
	}
	return orderDetail(ctx, s.Orders, o)
}

// Track is the public lookup: the order id and the email on the order must both match.
func (s *AccountService) Track(ctx context.Context, orderID, email string) (domain.OrderDetail, error) {
	orderID, email = strings.TrimSpace(orderID), strings.TrimSpace(email)
	if orderID == "" || email == "" {
		return domain.OrderDetail{}, invalid("order", "order number and email are required")
	}
	o, err := s.Orders.Get(ctx, orderID)
	if err != nil {
		return domain.OrderDetail{}, lookup(err, "order")
	}
	if !strings.EqualFold(o.Email, email) {
		return domain.OrderDetail{}, fmt.Errorf("order: %w", ErrNotFound)
	}
	return orderDetail(ctx, s.Orders, o)
}

func orderDetail(ctx context.Context, orders *repos.OrderRepo, o domain.Order) (domain.OrderDetail, error) {
	items, err := orders.Items(ctx, o.ID)
	if err != nil {
		return domain.OrderDetail{}, err
	}
	timeline, err := orders.Events(ctx, o.ID)
	if err != nil {
		return domain.OrderDetail{}, err
	}
	return domain.OrderDetail{Order: o, Items: items, Timeline: timeline}, nil
}
