package cart

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/MONA100421/ShopFlow-sub000/internal/domain/product"
	"github.com/MONA100421/ShopFlow-sub000/internal/domain/quantity"
)

// StockFunc reports the stock of an available product. ok is false for
// products that are missing or inactive.
type StockFunc func(productID string) (stock int, ok bool)

// StockFromProducts returns a StockFunc backed by a product index.
func StockFromProducts(byID map[string]product.Product) StockFunc {
	return func(id string) (int, bool) {
		p, ok := byID[id]
		if !ok || !p.Active {
			return 0, false
		}
		return p.Stock, true
	}
}

// MergeLines folds guest lines into user lines. Shared products get the sum
// of both quantities clamped to stock; guest-only products are appended
// clamped to stock; user-only lines are kept as they are. Guest lines for
// unavailable products are dropped. Neither input is modified.
func MergeLines(guest, user []Line, stock StockFunc) []Line {
	out := make([]Line, 0, len(user)+len(guest))
	pos := make(map[string]int, len(user)+len(guest))
	for _, l := range user {
		if l.Quantity <= 0 {
			continue
		}
		pos[l.ProductID] = len(out)
		out = append(out, l)
	}

	for _, g := range coalesce(guest) {
		st, ok := stock(g.ProductID)
		if !ok {
			continue
		}
		if i, exists := pos[g.ProductID]; exists {
			out[i].Quantity = max(quantity.ApplyDelta(out[i].Quantity, g.Quantity, st), 1)
			continue
		}
		q := quantity.ApplyDelta(0, g.Quantity, st)
		if q == 0 {
			continue
		}
		pos[g.ProductID] = len(out)
		out = append(out, Line{ProductID: g.ProductID, Quantity: q})
	}
	return out
}

// coalesce sums duplicate product lines, keeping first-seen order and
// dropping non-positive quantities.
func coalesce(lines []Line) []Line {
	out := make([]Line, 0, len(lines))
	pos := make(map[string]int, len(lines))
	for _, l := range lines {
		if l.Quantity <= 0 || l.ProductID == "" {
			continue
		}
		if i, ok := pos[l.ProductID]; ok {
			out[i].Quantity = quantity.Sum(out[i].Quantity, l.Quantity)
			continue
		}
		pos[l.ProductID] = len(out)
		out = append(out, l)
	}
	return out
}

// MergeRequest describes a guest-to-user reconciliation.
type MergeRequest struct {
	// User receives the merged lines.
	User Owner
	// Guest is a server-held guest cart. It is deleted after a successful merge.
	Guest *Owner
	// Lines are client-held guest lines, merged together with the guest cart.
	Lines []Line
	// Key makes the merge idempotent: a repeated key leaves the user cart as is.
	Key string
}

// Merge reconciles a guest cart into the user's cart in one atomic step.
func (s *Service) Merge(ctx context.Context, req MergeRequest) (*View, error) {
	ctx, span := s.tracer.Start(ctx, "cart.Merge", trace.WithAttributes(
		ownerAttr(req.User),
		attribute.Int("cart.merge.client_lines", len(req.Lines)),
	))
	defer span.End()

	if req.User.Kind != User || !req.User.Valid() {
		return nil, ErrInvalidOwner
	}
	if req.Guest != nil && (req.Guest.Kind != Guest || !req.Guest.Valid()) {
		return nil, ErrInvalidOwner
	}
	for _, l := range req.Lines {
		if l.Quantity < 1 {
			return nil, ErrInvalidQuantity
		}
	}

	keys := []string{req.User.String()}
	if req.Guest != nil {
		keys = append(keys, req.Guest.String())
	}
	unlock := s.locks.lock(keys...)
	defer unlock()

	var (
		merged    *Cart
		duplicate bool
	)
	err := s.carts.Atomic(ctx, func(ctx context.Context, repo Repository) error {
		if req.Key != "" {
			claimed, err := repo.ClaimMerge(ctx, req.User, req.Key)
			if err != nil {
				return fmt.Errorf("claim merge: %w", err)
			}
			if !claimed {
				duplicate = true
				merged, err = repo.Load(ctx, req.User)
				if err != nil {
					return fmt.Errorf("load user cart: %w", err)
				}
				return nil
			}
		}

		guestLines := req.Lines
		guestCode := ""
		if req.Guest != nil {
			g, err := repo.Load(ctx, *req.Guest)
			if err != nil {
				return fmt.Errorf("load guest cart: %w", err)
			}
			guestLines = append(g.Clone().Lines, guestLines...)
			guestCode = g.DiscountCode
		}

		user, err := repo.Load(ctx, req.User)
		if err != nil {
			return fmt.Errorf("load user cart: %w", err)
		}

		ids := make([]string, 0, len(guestLines))
		for _, l := range guestLines {
			ids = append(ids, l.ProductID)
		}
		var byID map[string]product.Product
		if len(ids) > 0 {
			found, err := s.products.GetByIDs(ctx, ids)
			if err != nil {
				return fmt.Errorf("get products: %w", err)
			}
			byID = product.Index(found)
		}

		next := user.Clone()
		next.Lines = MergeLines(guestLines, user.Lines, StockFromProducts(byID))
		if next.DiscountCode == "" {
			next.DiscountCode = guestCode
		}
		next.UpdatedAt = s.now()
		if err := repo.Save(ctx, next); err != nil {
			return fmt.Errorf("save user cart: %w", err)
		}
		if req.Guest != nil {
			if err := repo.Delete(ctx, *req.Guest); err != nil {
				return fmt.Errorf("delete guest cart: %w", err)
			}
		}
		merged = next
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "merge failed")
		return nil, err
	}

	span.SetAttributes(attribute.Bool("cart.merge.duplicate", duplicate))
	s.rec.CartMerged(ctx, len(merged.Lines), duplicate)
	return s.view(ctx, merged)
}
