package docs

import (
	"context"
	"fmt"

	"github.com/rs/xid"

	"github.com/snipmart/snipmart/internal/docstore"
	"github.com/snipmart/snipmart/internal/model"
	"github.com/snipmart/snipmart/internal/repository"
)

var _ repository.ProductRepository = (*ProductRepo)(nil)

// ProductRepo stores products as documents in the "products" collection.
type ProductRepo struct {
	store docstore.Store
}

func NewProductRepo(store docstore.Store) *ProductRepo {
	return &ProductRepo{store: store}
}

// Create persists a new product, generating its id when empty.
func (r *ProductRepo) Create(ctx context.Context, product *model.Product) error {
	if product.ID == "" {
		product.ID = xid.New().String()
	}
	if err := r.store.Set(ctx, productsCollection, product.ID, product.Doc()); err != nil {
		return fmt.Errorf("creating product %s: %w", product.ID, storeErr(err, "product", product.ID))
	}
	return nil
}

func (r *ProductRepo) GetByID(ctx context.Context, id string) (*model.Product, error) {
	doc, err := r.store.Get(ctx, productsCollection, id)
	if err != nil {
		return nil, storeErr(err, "product", id)
	}
	return model.ProductFromDoc(doc.ID, doc.Fields)
}

// List returns products newest first, optionally filtered by owner.
func (r *ProductRepo) List(ctx context.Context, opts repository.ListOptions) ([]model.Product, error) {
	q := docstore.Query{OrderBy: "createdAt", Desc: true, Limit: opts.Limit}
	if opts.OwnerID != "" {
		q.Field = "ownerId"
		q.Equals = opts.OwnerID
	}

	docsList, err := r.store.Query(ctx, productsCollection, q)
	if err != nil {
		return nil, storeErr(err, "product", "")
	}

	products := make([]model.Product, 0, len(docsList))
	for _, doc := range docsList {
		p, err := model.ProductFromDoc(doc.ID, doc.Fields)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	return products, nil
}

func (r *ProductRepo) Update(ctx context.Context, product *model.Product) error {
	// Confirm existence first so an update of a deleted product reports
	// not-found instead of silently recreating it.
	if _, err := r.store.Get(ctx, productsCollection, product.ID); err != nil {
		return storeErr(err, "product", product.ID)
	}
	if err := r.store.Set(ctx, productsCollection, product.ID, product.Doc()); err != nil {
		return fmt.Errorf("updating product %s: %w", product.ID, storeErr(err, "product", product.ID))
	}
	return nil
}

func (r *ProductRepo) Delete(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, productsCollection, id); err != nil {
		return storeErr(err, "product", id)
	}
	return nil
}
