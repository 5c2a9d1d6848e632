package seed

import "github.com/lib/pq"

// The demo datasets. Tables are declared in dependency order; Reset drops
// them in reverse. Row ids referenced by foreign keys assume fresh serial
// sequences, so mixing demo rows into a table that already holds other
// data is not supported.

var ecommerce = Dataset{
	Name: "ecommerce",
	Tables: []Table{
		{
			Name: "customers",
			Schema: `CREATE TABLE IF NOT EXISTS customers (
				id SERIAL PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				email VARCHAR(255) UNIQUE NOT NULL,
				phone VARCHAR(20),
				address TEXT,
				created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
			)`,
			Insert: `INSERT INTO customers (name, email, phone, address)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (email) DO NOTHING`,
			Keyed: true,
			Rows: [][]any{
				{"Alice Johnson", "alice@example.com", "+1-555-0101", "123 Main St, Anytown, USA"},
				{"Bob Smith", "bob@example.com", "+1-555-0102", "456 Oak Ave, Somewhere, USA"},
				{"Carol Davis", "carol@example.com", "+1-555-0103", "789 Pine Rd, Elsewhere, USA"},
				{"David Wilson", "david@example.com", "+1-555-0104", "321 Elm St, Nowhere, USA"},
				{"Eve Brown", "eve@example.com", "+1-555-0105", "654 Maple Dr, Anywhere, USA"},
			},
		},
		{
			Name: "products",
			Schema: `CREATE TABLE IF NOT EXISTS products (
				id SERIAL PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				description TEXT,
				price DECIMAL(10, 2) NOT NULL,
				category VARCHAR(100),
				stock_quantity INTEGER DEFAULT 0,
				created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
			)`,
			Insert: `INSERT INTO products (name, description, price, category, stock_quantity)
				VALUES ($1, $2, $3, $4, $5)`,
			Rows: [][]any{
				{"Laptop Pro", "High-performance laptop for professionals", 1299.99, "Electronics", 25},
				{"Wireless Headphones", "Premium noise-canceling headphones", 299.99, "Electronics", 50},
				{"Coffee Maker", "Automatic drip coffee maker", 89.99, "Appliances", 30},
				{"Running Shoes", "Comfortable athletic shoes", 129.99, "Sports", 40},
				{"Desk Chair", "Ergonomic office chair", 199.99, "Furniture", 15},
				{"Smartphone", "Latest model smartphone", 899.99, "Electronics", 20},
				{"Backpack", "Durable travel backpack", 59.99, "Accessories", 35},
				{"Yoga Mat", "Non-slip exercise mat", 29.99, "Sports", 60},
			},
		},
		{
			Name: "orders",
			Schema: `CREATE TABLE IF NOT EXISTS orders (
				id SERIAL PRIMARY KEY,
				customer_id INTEGER REFERENCES customers(id),
				order_date TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
				total_amount DECIMAL(10, 2),
				status VARCHAR(50) DEFAULT 'pending'
			)`,
			Insert: `INSERT INTO orders (customer_id, total_amount, status, order_date)
				VALUES ($1, $2, $3, CURRENT_TIMESTAMP - make_interval(days => $4))`,
			Rows: [][]any{
				{1, 149.99, "delivered", 28},
				{2, 329.98, "delivered", 25},
				{3, 89.99, "shipped", 19},
				{1, 459.97, "delivered", 16},
				{4, 199.99, "cancelled", 14},
				{5, 259.98, "shipped", 11},
				{2, 129.99, "delivered", 8},
				{3, 369.98, "pending", 5},
				{4, 59.99, "pending", 2},
				{5, 489.97, "pending", 1},
			},
		},
	},
}

var blog = Dataset{
	Name: "blog",
	Tables: []Table{
		{
			Name: "users",
			Schema: `CREATE TABLE IF NOT EXISTS users (
				id SERIAL PRIMARY KEY,
				username VARCHAR(50) UNIQUE NOT NULL,
				email VARCHAR(255) UNIQUE NOT NULL,
				bio TEXT,
				joined_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
			)`,
			Insert: `INSERT INTO users (username, email, bio)
				VALUES ($1, $2, $3)
				ON CONFLICT (username) DO NOTHING`,
			Keyed: true,
			Rows: [][]any{
				{"techguru", "tech@example.com", "Passionate about technology and innovation"},
				{"foodlover", "food@example.com", "Exploring cuisines from around the world"},
				{"traveler", "travel@example.com", "Digital nomad sharing travel experiences"},
				{"bookworm", "books@example.com", "Avid reader and literature enthusiast"},
			},
		},
		{
			Name: "posts",
			Schema: `CREATE TABLE IF NOT EXISTS posts (
				id SERIAL PRIMARY KEY,
				title VARCHAR(255) NOT NULL,
				content TEXT NOT NULL,
				author_id INTEGER REFERENCES users(id),
				published_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
				view_count INTEGER DEFAULT 0,
				tags TEXT[]
			)`,
			Insert: `INSERT INTO posts (title, content, author_id, tags, view_count)
				VALUES ($1, $2, $3, $4, $5)`,
			Rows: [][]any{
				{"The Future of AI", "Exploring the latest developments in artificial intelligence...", 1, pq.Array([]string{"ai", "technology"}), 342},
				{"Best Coffee Shops in San Francisco", "A curated list of the most amazing coffee experiences...", 2, pq.Array([]string{"food", "coffee", "sf"}), 127},
				{"Digital Nomad Guide to Thailand", "Everything you need to know about working remotely from Thailand...", 3, pq.Array([]string{"travel", "remote-work"}), 214},
				{"Book Review: 1984 by George Orwell", "A timeless classic that feels more relevant than ever...", 4, pq.Array([]string{"books", "review"}), 89},
			},
		},
		{
			// Created empty so questions about joins still have a table to
			// find.
			Name: "comments",
			Schema: `CREATE TABLE IF NOT EXISTS comments (
				id SERIAL PRIMARY KEY,
				post_id INTEGER REFERENCES posts(id),
				author_id INTEGER REFERENCES users(id),
				content TEXT NOT NULL,
				created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
			)`,
		},
	},
}

var library = Dataset{
	Name: "library",
	Tables: []Table{
		{
			Name: "authors",
			Schema: `CREATE TABLE IF NOT EXISTS authors (
				id SERIAL PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				birth_year INTEGER,
				nationality VARCHAR(100)
			)`,
			Insert: `INSERT INTO authors (name, birth_year, nationality)
				VALUES ($1, $2, $3)`,
			Rows: [][]any{
				{"George Orwell", 1903, "British"},
				{"Jane Austen", 1775, "British"},
				{"Gabriel García Márquez", 1927, "Colombian"},
				{"Haruki Murakami", 1949, "Japanese"},
			},
		},
		{
			Name: "books",
			Schema: `CREATE TABLE IF NOT EXISTS books (
				id SERIAL PRIMARY KEY,
				title VARCHAR(255) NOT NULL,
				author_id INTEGER REFERENCES authors(id),
				isbn VARCHAR(20) UNIQUE,
				publication_year INTEGER,
				genre VARCHAR(100),
				available_copies INTEGER DEFAULT 1
			)`,
			Insert: `INSERT INTO books (title, author_id, isbn, publication_year, genre, available_copies)
				VALUES ($1, $2, $3, $4, $5, $6)
				ON CONFLICT (isbn) DO NOTHING`,
			Keyed: true,
			Rows: [][]any{
				{"1984", 1, "978-0-452-28423-4", 1949, "Dystopian Fiction", 3},
				{"Animal Farm", 1, "978-0-452-28424-1", 1945, "Political Satire", 2},
				{"Pride and Prejudice", 2, "978-0-14-143951-8", 1813, "Romance", 4},
				{"One Hundred Years of Solitude", 3, "978-0-06-088328-7", 1967, "Magical Realism", 2},
				{"Norwegian Wood", 4, "978-0-375-70463-5", 1987, "Literary Fiction", 1},
			},
		},
		{
			Name: "borrowers",
			Schema: `CREATE TABLE IF NOT EXISTS borrowers (
				id SERIAL PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				email VARCHAR(255) UNIQUE NOT NULL,
				membership_date DATE DEFAULT CURRENT_DATE
			)`,
			Insert: `INSERT INTO borrowers (name, email)
				VALUES ($1, $2)
				ON CONFLICT (email) DO NOTHING`,
			Keyed: true,
			Rows: [][]any{
				{"Michael Chen", "michael@example.com"},
				{"Sarah Williams", "sarah@example.com"},
				{"James Rodriguez", "james@example.com"},
			},
		},
	},
}
