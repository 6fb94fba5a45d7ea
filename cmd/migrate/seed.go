package main

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ariefcatur/lumina-store/internal/postgres"
)

type demoProduct struct {
	name, price, description, image, category string
	stock                                     int
}

var demoCatalog = []demoProduct{
	{"Velvet Rose Lipstick", "28", "Long-lasting matte finish with rose extract.", "https://images.unsplash.com/photo-1586495777744-4413f21062fa?q=80&w=400", "Makeup", 50},
	{"Radiance Glow Serum", "52", "Vitamin C & Hyaluronic acid for a natural glow.", "https://images.unsplash.com/photo-1620916566398-39f1143ab7be?q=80&w=400", "Skincare", 30},
	{"Deep Hydration Cream", "42", "24-hour moisture for sensitive skin.", "https://www.fresh.com/on/demandware.static/-/Sites-fresh_master_catalog/default/dw3664ccba/product_images/H00006118_plp.jpg", "Skincare", 0},
	{"Midnight Jasmine Perfume", "85", "A sophisticated floral scent for evenings.", "https://images.unsplash.com/photo-1541643600914-78b084683601?q=80&w=400", "Fragrance", 15},
	{"Silk Finish Foundation", "45", "Flawless coverage that feels like second skin.", "https://andreiaprofessional.com/cdn/shop/files/RefreshSilkFoundation-06BrownSugar_9c020c4f-830a-47bc-91ed-811d194256ac_1080x.png?v=1753786125", "Makeup", 25},
	{"Organic Argan Oil", "35", "Pure cold-pressed oil for hair and body.", "https://images.unsplash.com/photo-1608248597279-f99d160bfcbc?q=80&w=400", "Body Care", 10},
	{"Charcoal Detox Mask", "24", "Deeply cleanses and minimizes pores.", "https://www.beautybyeman.co.uk/cdn/shop/files/s-l1600-2024-07-16T175025.176_713x.webp?v=1721148664", "Skincare", 0},
	{"Golden Sun Bronzer", "32", "Sun-kissed glow without the damage.", "https://images.unsplash.com/photo-1522335789203-aabd1fc54bc9?q=80&w=400", "Makeup", 20},
}

// seedCatalog replaces the product table with the demo catalog. Pending
// restock requests go with the products they point at.
func seedCatalog(ctx context.Context, db *pgxpool.Pool) (int, error) {
	err := postgres.InTx(ctx, db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM products`); err != nil {
			return err
		}
		b := &pgx.Batch{}
		for _, p := range demoCatalog {
			b.Queue(`
				INSERT INTO products (id, name, price, description, image, category, stock)
				VALUES ($1, $2, $3::numeric, $4, $5, $6, $7)`,
				uuid.New(), p.name, p.price, p.description, p.image, p.category, p.stock)
		}
		return tx.SendBatch(ctx, b).Close()
	})
	if err != nil {
		return 0, err
	}
	return len(demoCatalog), nil
}
