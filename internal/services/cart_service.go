package services

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"synergyfoods/internal/domain"
	"synergyfoods/internal/repos"
	"synergyfoods/internal/validate"
)

type CartService struct {
	Carts *repos.CartRepo
	Prods *repos.ProductRepo
}

func NewCartService(carts *repos.CartRepo, prods *repos.ProductRepo) *CartService {
	return &CartService{Carts: carts, Prods: prods}
}

// Add puts qty units of an active product in the session cart. qty is clamped
// to 1..50 and the line never exceeds 50 units.
func (s *CartService) Add(ctx context.Context, sessionID, productID string, qty int) error {
	qty = validate.ClampQty(qty)
	p, err := s.Prods.Get(ctx, productID)
	if err != nil {
		return lookup(err, "product")
	}
	if !p.IsActive {
		return fmt.Errorf("product: %w", ErrNotFound)
	}
	if p.Stock < 1 {
		return fmt.Errorf("%s: %w", p.Name, ErrOutOfStock)
	}
	cartID, err := s.Carts.EnsureCart(ctx, sessionID)
	if err != nil {
		return err
	}
	return s.Carts.AddItem(ctx, cartID, productID, qty, validate.MaxQty, p.Price)
}

// SetQty overwrites a line's quantity; qty <= 0 removes the line.
func (s *CartService) SetQty(ctx context.Context, sessionID, productID string, qty int) error {
	cartID, err := s.Carts.EnsureCart(ctx, sessionID)
	if err != nil {
		return err
	}
	if qty <= 0 {
		return s.Carts.RemoveItem(ctx, cartID, productID)
	}
	ok, err := s.Carts.SetQty(ctx, cartID, productID, validate.ClampQty(qty))
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("cart line: %w", ErrNotFound)
	}
	return nil
}

func (s *CartService) Remove(ctx context.Context, sessionID, productID string) error {
	cartID, err := s.Carts.EnsureCart(ctx, sessionID)
	if err != nil {
		return err
	}
	return s.Carts.RemoveItem(ctx, cartID, productID)
}

func (s *CartService) View(ctx context.Context, sessionID string) (domain.Cart, error) {
	cartID, err := s.Carts.EnsureCart(ctx, sessionID)
	if err != nil {
		return domain.Cart{}, err
	}
	lines, err := s.Carts.Lines(ctx, cartID)
	if err != nil {
		return domain.Cart{}, err
	}
	sub := decimal.Zero
	for _, l := range lines {
		sub = sub.Add(l.Subtotal())
	}
	return domain.Cart{ID: cartID, Lines: lines, Subtotal: sub.Round(2)}, nil
}
