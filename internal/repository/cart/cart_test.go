package cart

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"

	"vsbridge/internal/domain"
	"vsbridge/internal/repository/repotest"
)

func TestPostgres_CartLifecycle(t *testing.T) {
	ctx := context.Background()
	pool := repotest.Pool(ctx, t)
	storeID := repotest.Store(ctx, t, pool)
	var customerID string
	err := pool.QueryRow(ctx, `INSERT INTO customers (store_id, email, password_hash) VALUES ($1, 'jane@example.com', 'x') RETURNING id::text`, storeID).Scan(&customerID)
	if err != nil {
		t.Fatalf("insert customer: %v", err)
	}
	repo := NewPostgres(pool, nil)

	exerciseLifecycle(ctx, t, repo, storeID, customerID)
	exerciseConcurrentCreate(ctx, t, repo, storeID)
}

func TestMemory_CartLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewMemory()

	exerciseLifecycle(ctx, t, repo, "store-1", uuid.NewString())
	exerciseConcurrentCreate(ctx, t, repo, "store-1")
}

func TestMemory_ConvertRejectsFurtherWrites(t *testing.T) {
	ctx := context.Background()
	repo := NewMemory()
	customer := "cust-1"
	cart, err := repo.Create(ctx, CreateCartInput{StoreID: "s", CustomerID: &customer})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	boom := errors.New("boom")
	if err := repo.Convert(ctx, cart.ID, func(*domain.Cart) error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("expected callback error, got %v", err)
	}
	if got, _ := repo.GetByID(ctx, cart.ID); got.IsConverted() {
		t.Fatalf("failed conversion must leave the cart untouched")
	}

	if err := repo.Convert(ctx, cart.ID, func(*domain.Cart) error { return nil }); err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if err := repo.Save(ctx, cart); !errors.Is(err, domain.ErrCartConverted) {
		t.Fatalf("expected ErrCartConverted, got %v", err)
	}

	next, err := repo.Create(ctx, CreateCartInput{StoreID: "s", CustomerID: &customer})
	if err != nil {
		t.Fatalf("Create after conversion: %v", err)
	}
	if next.ID == cart.ID {
		t.Fatalf("converted cart must not be reused")
	}
}

func exerciseLifecycle(ctx context.Context, t *testing.T, repo Repository, storeID, customerID string) {
	t.Helper()

	guestA, err := repo.Create(ctx, CreateCartInput{StoreID: storeID})
	if err != nil {
		t.Fatalf("Create guest: %v", err)
	}
	guestB, err := repo.Create(ctx, CreateCartInput{StoreID: storeID})
	if err != nil {
		t.Fatalf("Create guest: %v", err)
	}
	if guestA.ID == guestB.ID || !guestA.IsGuest {
		t.Fatalf("guests must get distinct guest carts: %+v %+v", guestA, guestB)
	}

	owned, err := repo.Create(ctx, CreateCartInput{StoreID: storeID, CustomerID: &customerID})
	if err != nil {
		t.Fatalf("Create customer cart: %v", err)
	}
	again, err := repo.Create(ctx, CreateCartInput{StoreID: storeID, CustomerID: &customerID})
	if err != nil {
		t.Fatalf("Create customer cart again: %v", err)
	}
	if owned.ID != again.ID {
		t.Fatalf("customer got a second active cart: %s vs %s", owned.ID, again.ID)
	}

	addr, err := repo.SaveAddress(ctx, owned.ID, domain.Address{
		Type:      domain.AddressTypeShipping,
		Firstname: "Jane",
		Lastname:  "Doe",
		Street:    []string{"1 Main St"},
		City:      "Austin",
		CountryID: "US",
		Postcode:  "78701",
	})
	if err != nil {
		t.Fatalf("SaveAddress: %v", err)
	}
	if addr.ID == "" {
		t.Fatalf("SaveAddress must assign an id")
	}

	parentID := uuid.NewString()
	owned.ShippingAddress = addr
	owned.ShippingMethod = "flatrate_flatrate"
	owned.CouponCode = "SAVE10"
	owned.Payment = domain.Payment{Method: "checkmo", AdditionalData: json.RawMessage(`{"po":"42"}`)}
	owned.Items = []domain.CartItem{
		{ID: parentID, SKU: "MH01-XS-Black", Name: "Hoodie", ProductType: domain.ProductTypeConfigurable, Qty: 2, PriceCents: 5200, ParentSKU: "MH01"},
		{ID: uuid.NewString(), SKU: "MH01-XS-Black", Name: "Hoodie", ProductType: domain.ProductTypeSimple, Qty: 2, PriceCents: 5200, ParentItemID: &parentID, Options: map[string]string{"size": "XS"}},
	}
	owned.Totals = domain.Totals{GrandTotal: 10400, Subtotal: 10400, CouponCode: "SAVE10"}
	version := owned.Version
	if err := repo.Save(ctx, owned); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if owned.Version != version+1 {
		t.Fatalf("version not bumped: %d -> %d", version, owned.Version)
	}

	// saving the same line set again must not duplicate lines
	if err := repo.Save(ctx, owned); err != nil {
		t.Fatalf("Save again: %v", err)
	}

	got, err := repo.GetByID(ctx, owned.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if len(got.Items) != 2 || got.Items[0].ID != parentID || got.Items[1].ParentItemID == nil {
		t.Fatalf("unexpected lines %+v", got.Items)
	}
	if got.Items[1].Options["size"] != "XS" {
		t.Fatalf("options lost: %+v", got.Items[1])
	}
	if got.ShippingAddress == nil || got.ShippingAddress.ID != addr.ID || got.ShippingAddress.City != "Austin" {
		t.Fatalf("shipping address not attached: %+v", got.ShippingAddress)
	}
	if got.Totals.GrandTotal != 10400 || got.Totals.CouponCode != "SAVE10" {
		t.Fatalf("totals not persisted: %+v", got.Totals)
	}
	if got.Payment.Method != "checkmo" || len(got.Payment.AdditionalData) == 0 {
		t.Fatalf("payment not persisted: %+v", got.Payment)
	}

	active, err := repo.GetActiveByCustomer(ctx, storeID, customerID)
	if err != nil || active.ID != owned.ID {
		t.Fatalf("GetActiveByCustomer: %v %+v", err, active)
	}

	if _, err := repo.GetByID(ctx, uuid.NewString()); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func exerciseConcurrentCreate(ctx context.Context, t *testing.T, repo Repository, storeID string) {
	t.Helper()
	customerID := uuid.NewString()
	if pg, ok := repo.(*postgresRepo); ok {
		err := pg.pool.QueryRow(ctx, `INSERT INTO customers (store_id, email, password_hash) VALUES ($1, $2, 'x') RETURNING id::text`,
			storeID, customerID+"@example.com").Scan(&customerID)
		if err != nil {
			t.Fatalf("insert customer: %v", err)
		}
	}

	const workers = 8
	ids := make([]string, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			cart, err := repo.Create(ctx, CreateCartInput{StoreID: storeID, CustomerID: &customerID})
			if err != nil {
				t.Errorf("Create: %v", err)
				return
			}
			ids[i] = cart.ID
		}(i)
	}
	wg.Wait()

	for _, id := range ids[1:] {
		if id != ids[0] {
			t.Fatalf("concurrent creates produced different carts: %v", ids)
		}
	}
}
