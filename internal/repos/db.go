package repos

import (
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"

	applog "synergyfoods/internal/log"
)

func OpenDB(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// One connection keeps ":memory:" databases alive and serialises sqlite writers.
	db.SetMaxOpenConns(1)
	if err = db.Ping(); err != nil {
		return nil, err
	}

	if err := ensureSchema(db); err != nil {
		return nil, err
	}
	// Seed catalog and banners if the DB is empty
	if err := seedIfEmpty(db); err != nil {
		return nil, err
	}
	// Ensure users exist (idempotent; safe to run every start)
	if err := seedUsers(db); err != nil {
		return nil, err
	}

	return db, nil
}

func ensureSchema(db *sqlx.DB) error {
	schema := `
PRAGMA foreign_keys = ON;

-- Taxonomy
CREATE TABLE IF NOT EXISTS categories(
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  slug TEXT NOT NULL UNIQUE,
  description TEXT NOT NULL DEFAULT '',
  image_url TEXT NOT NULL DEFAULT '',
  sort_order INTEGER NOT NULL DEFAULT 0,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now')),
  updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now'))
);

CREATE TABLE IF NOT EXISTS subcategories(
  id TEXT PRIMARY KEY,
  category_id TEXT NOT NULL REFERENCES categories(id) ON DELETE RESTRICT,
  name TEXT NOT NULL,
  slug TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  image_url TEXT NOT NULL DEFAULT '',
  sort_order INTEGER NOT NULL DEFAULT 0,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now')),
  updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now')),
  UNIQUE(category_id, slug)
);
CREATE INDEX IF NOT EXISTS idx_subcategories_category ON subcategories(category_id);

CREATE TABLE IF NOT EXISTS product_types(
  id TEXT PRIMARY KEY,
  category_id TEXT NOT NULL REFERENCES categories(id) ON DELETE RESTRICT,
  subcategory_id TEXT NOT NULL REFERENCES subcategories(id) ON DELETE RESTRICT,
  name TEXT NOT NULL,
  slug TEXT NOT NULL,
  sort_order INTEGER NOT NULL DEFAULT 0,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now')),
  updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now')),
  UNIQUE(subcategory_id, slug)
);
CREATE INDEX IF NOT EXISTS idx_product_types_subcategory ON product_types(subcategory_id);

-- Products
CREATE TABLE IF NOT EXISTS products(
  id TEXT PRIMARY KEY,
  category_id TEXT NOT NULL REFERENCES categories(id) ON DELETE RESTRICT,
  subcategory_id TEXT REFERENCES subcategories(id) ON DELETE RESTRICT,
  product_type_id TEXT REFERENCES product_types(id) ON DELETE RESTRICT,
  name TEXT NOT NULL,
  slug TEXT NOT NULL UNIQUE,
  description TEXT NOT NULL DEFAULT '',
  price NUMERIC NOT NULL CHECK (price >= 0),
  compare_at_price NUMERIC,
  unit TEXT NOT NULL DEFAULT 'each',
  image_url TEXT NOT NULL DEFAULT '',
  stock INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
  is_active INTEGER NOT NULL DEFAULT 1,
  is_featured INTEGER NOT NULL DEFAULT 0,
  created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now')),
  updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now'))
);
CREATE INDEX IF NOT EXISTS idx_products_category    ON products(category_id);
CREATE INDEX IF NOT EXISTS idx_products_subcategory ON products(subcategory_id);
CREATE INDEX IF NOT EXISTS idx_products_type        ON products(product_type_id);
CREATE INDEX IF NOT EXISTS idx_products_name        ON products(LOWER(name));
CREATE INDEX IF NOT EXISTS idx_products_created_at  ON products(created_at);

-- Marketing
CREATE TABLE IF NOT EXISTS banners(
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  subtitle TEXT NOT NULL DEFAULT '',
  image_url TEXT NOT NULL,
  link_url TEXT NOT NULL DEFAULT '',
  sort_order INTEGER NOT NULL DEFAULT 0,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now')),
  updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now'))
);

CREATE TABLE IF NOT EXISTS promotional_banners(
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  image_url TEXT NOT NULL,
  link_url TEXT NOT NULL DEFAULT '',
  location TEXT NOT NULL CHECK (location IN ('HOME_TOP','HOME_MIDDLE','HOME_BOTTOM','CATEGORY_SIDEBAR')),
  sort_order INTEGER NOT NULL DEFAULT 0,
  is_active INTEGER NOT NULL DEFAULT 1,
  starts_at TEXT NOT NULL DEFAULT '',
  ends_at TEXT NOT NULL DEFAULT '',
  created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now')),
  updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now'))
);
CREATE INDEX IF NOT EXISTS idx_promotional_banners_location ON promotional_banners(location);

-- Users & Sessions
CREATE TABLE IF NOT EXISTS users(
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  phone TEXT NOT NULL DEFAULT '',
  password_hash TEXT NOT NULL,
  role TEXT NOT NULL CHECK (role IN ('USER','ADMIN')),
  created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now')),
  updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now'))
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users(LOWER(email));

CREATE TABLE IF NOT EXISTS sessions(
  id TEXT PRIMARY KEY,               -- same value as the 'sid' cookie
  user_id TEXT NULL REFERENCES users(id) ON DELETE SET NULL,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  last_seen  TEXT
);
CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id);

CREATE TABLE IF NOT EXISTS addresses(
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  label TEXT NOT NULL DEFAULT '',
  full_name TEXT NOT NULL,
  phone TEXT NOT NULL DEFAULT '',
  line1 TEXT NOT NULL,
  line2 TEXT NOT NULL DEFAULT '',
  city TEXT NOT NULL,
  state TEXT NOT NULL DEFAULT '',
  postal_code TEXT NOT NULL,
  country TEXT NOT NULL,
  is_default INTEGER NOT NULL DEFAULT 0,
  created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now')),
  updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now'))
);
CREATE INDEX IF NOT EXISTS idx_addresses_user ON addresses(user_id);

-- Carts
CREATE TABLE IF NOT EXISTS carts(
  id TEXT PRIMARY KEY,
  session_id TEXT UNIQUE NOT NULL,
  updated_at TEXT
);

CREATE TABLE IF NOT EXISTS cart_items(
  cart_id    TEXT NOT NULL REFERENCES carts(id) ON DELETE CASCADE,
  product_id TEXT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
  qty INTEGER NOT NULL CHECK (qty >= 1),
  price_at_add NUMERIC NOT NULL,
  created_at TEXT,
  updated_at TEXT,
  PRIMARY KEY (cart_id, product_id)
);

-- Checkout wizard state, one row per session
CREATE TABLE IF NOT EXISTS checkouts(
  session_id TEXT PRIMARY KEY,
  step TEXT NOT NULL CHECK (step IN ('shipping','payment','review','confirmation')),
  email TEXT NOT NULL DEFAULT '',
  full_name TEXT NOT NULL DEFAULT '',
  phone TEXT NOT NULL DEFAULT '',
  line1 TEXT NOT NULL DEFAULT '',
  line2 TEXT NOT NULL DEFAULT '',
  city TEXT NOT NULL DEFAULT '',
  state TEXT NOT NULL DEFAULT '',
  postal_code TEXT NOT NULL DEFAULT '',
  country TEXT NOT NULL DEFAULT '',
  shipping_method TEXT NOT NULL DEFAULT '',
  payment_method TEXT NOT NULL DEFAULT '',
  order_id TEXT NOT NULL DEFAULT '',
  updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now'))
);

-- Orders
CREATE TABLE IF NOT EXISTS orders(
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL DEFAULT '',
  session_id TEXT NOT NULL DEFAULT '',
  email TEXT NOT NULL,
  full_name TEXT NOT NULL,
  phone TEXT NOT NULL DEFAULT '',
  line1 TEXT NOT NULL,
  line2 TEXT NOT NULL DEFAULT '',
  city TEXT NOT NULL,
  state TEXT NOT NULL DEFAULT '',
  postal_code TEXT NOT NULL,
  country TEXT NOT NULL,
  shipping_method TEXT NOT NULL,
  payment_method TEXT NOT NULL,
  subtotal NUMERIC NOT NULL,
  shipping_cost NUMERIC NOT NULL,
  tax NUMERIC NOT NULL,
  total NUMERIC NOT NULL,
  status TEXT NOT NULL,
  payment_session_id TEXT NOT NULL DEFAULT '',
  tracking_number TEXT NOT NULL DEFAULT '',
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_orders_user       ON orders(user_id);
CREATE INDEX IF NOT EXISTS idx_orders_session    ON orders(session_id);
CREATE INDEX IF NOT EXISTS idx_orders_payment    ON orders(payment_session_id);
CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders(created_at);

CREATE TABLE IF NOT EXISTS order_items(
  order_id  TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
  product_id TEXT NOT NULL,
  name TEXT NOT NULL,
  qty INTEGER NOT NULL,
  price NUMERIC NOT NULL,
  PRIMARY KEY (order_id, product_id)
);

CREATE TABLE IF NOT EXISTS order_status_events(
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  order_id TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
  status TEXT NOT NULL,
  note TEXT NOT NULL DEFAULT '',
  created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_order_status_events_order ON order_status_events(order_id);
`
	_, err := db.Exec(schema)
	return err
}

func seedIfEmpty(db *sqlx.DB) error {
	var n int
	if err := db.Get(&n, `SELECT COUNT(*) FROM categories`); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	applog.L().Info("seed.catalog")

	tx := db.MustBegin()
	tx.MustExec(`INSERT INTO categories(id,name,slug,description,sort_order) VALUES
	  ('cat-produce','Fresh Produce','fresh-produce','Fruit and vegetables from local growers',1),
	  ('cat-dairy','Dairy & Eggs','dairy-eggs','Milk, cheese, yogurt and free-range eggs',2),
	  ('cat-bakery','Bakery','bakery','Baked fresh every morning',3)`)

	tx.MustExec(`INSERT INTO subcategories(id,category_id,name,slug,sort_order) VALUES
	  ('sub-fruit','cat-produce','Fruit','fruit',1),
	  ('sub-vegetables','cat-produce','Vegetables','vegetables',2),
	  ('sub-cheese','cat-dairy','Cheese','cheese',1),
	  ('sub-milk','cat-dairy','Milk','milk',2),
	  ('sub-bread','cat-bakery','Bread','bread',1)`)

	tx.MustExec(`INSERT INTO product_types(id,category_id,subcategory_id,name,slug,sort_order) VALUES
	  ('pt-citrus','cat-produce','sub-fruit','Citrus','citrus',1),
	  ('pt-berries','cat-produce','sub-fruit','Berries','berries',2),
	  ('pt-leafy','cat-produce','sub-vegetables','Leafy Greens','leafy-greens',1),
	  ('pt-hard-cheese','cat-dairy','sub-cheese','Hard Cheese','hard-cheese',1),
	  ('pt-sourdough','cat-bakery','sub-bread','Sourdough','sourdough',1)`)

	tx.MustExec(`INSERT INTO products(id,category_id,subcategory_id,product_type_id,name,slug,description,price,compare_at_price,unit,image_url,stock,is_featured) VALUES
	  ('prod-oranges','cat-produce','sub-fruit','pt-citrus','Navel Oranges','navel-oranges','Sweet, seedless navel oranges',3.49,NULL,'1 lb','/media/products/oranges.jpg',120,1),
	  ('prod-strawberries','cat-produce','sub-fruit','pt-berries','Strawberries','strawberries','Hand-picked strawberries',4.99,5.99,'16 oz','/media/products/strawberries.jpg',60,1),
	  ('prod-kale','cat-produce','sub-vegetables','pt-leafy','Organic Kale','organic-kale','Curly green kale',2.79,NULL,'bunch','/media/products/kale.jpg',40,0),
	  ('prod-cheddar','cat-dairy','sub-cheese','pt-hard-cheese','Aged Cheddar','aged-cheddar','12-month aged white cheddar',7.50,NULL,'8 oz','/media/products/cheddar.jpg',25,1),
	  ('prod-milk','cat-dairy','sub-milk',NULL,'Whole Milk','whole-milk','Pasture-raised whole milk',3.99,NULL,'half gallon','/media/products/milk.jpg',80,0),
	  ('prod-sourdough','cat-bakery','sub-bread','pt-sourdough','Country Sourdough','country-sourdough','Naturally leavened loaf',6.25,NULL,'loaf','/media/products/sourdough.jpg',15,0)`)

	tx.MustExec(`INSERT INTO banners(id,title,subtitle,image_url,link_url,sort_order) VALUES
	  ('ban-harvest','Harvest Week','Up to 20% off seasonal produce','/media/banners/harvest.jpg','/c/fresh-produce',1),
	  ('ban-bakery','Fresh From the Oven','Sourdough baked daily','/media/banners/bakery.jpg','/c/bakery',2)`)

	tx.MustExec(`INSERT INTO promotional_banners(id,title,image_url,link_url,location,sort_order) VALUES
	  ('promo-free-ship','Free shipping over $50','/media/promos/free-shipping.jpg','/c/fresh-produce','HOME_TOP',1),
	  ('promo-cheese','Cheese of the month','/media/promos/cheese.jpg','/p/aged-cheddar','CATEGORY_SIDEBAR',1)`)

	return tx.Commit()
}

// seedUsers ensures demo customers and one ADMIN exist (idempotent).
func seedUsers(db *sqlx.DB) error {
	type u struct {
		ID, Email, Name, Role, Hash string
	}
	mk := func(id, email, name, role, raw string) (u, error) {
		h, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
		return u{ID: id, Email: email, Name: name, Role: role, Hash: string(h)}, err
	}

	var users []u
	for _, s := range [][4]string{
		{"u-alice", "alice@synergyfoods.test", "Alice", "USER"},
		{"u-bob", "bob@synergyfoods.test", "Bob", "USER"},
		{"u-admin", "admin@synergyfoods.test", "Admin", "ADMIN"},
	} {
		x, err := mk(s[0], s[1], s[2], s[3], "Passw0rd!")
		if err != nil {
			return err
		}
		users = append(users, x)
	}

	tx := db.MustBegin()
	defer func() { _ = tx.Rollback() }()

	for _, x := range users {
		if _, err := tx.Exec(`
			INSERT INTO users(id,email,name,password_hash,role)
			VALUES(?,?,?,?,?)
			ON CONFLICT(email) DO NOTHING
		`, x.ID, x.Email, x.Name, x.Hash, x.Role); err != nil {
			return err
		}
	}

	return tx.Commit()
}
