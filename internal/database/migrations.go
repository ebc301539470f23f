package database

// migrationsSQL contains all database migrations.
// Migrations are applied in order by version number.
var migrationsSQL = map[int]string{
	1: migrationV1Calendar,
	2: migrationV2Content,
	3: migrationV3UsersAndTreby,
}

// migrationV1Calendar creates the liturgical calendar schema.
//
// calendar_days.date holds a UTC instant in the fixed-width layout
// 2006-01-02T15:04:05.000Z so that string comparison orders correctly.
// Rows written today hold the instant of local midnight in the parish zone;
// older rows may hold UTC midnight for the same civil date.
const migrationV1Calendar = `
CREATE TABLE IF NOT EXISTS calendar_days (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    date TEXT NOT NULL UNIQUE,
    priority TEXT NOT NULL DEFAULT 'NORMAL' CHECK (priority IN (
        'GREAT_FEAST', 'TWELVE_FEAST', 'POLYELEOS', 'VIGIL', 'SIXTH_CLASS', 'NORMAL'
    )),
    fasting_type TEXT NOT NULL DEFAULT 'NONE' CHECK (fasting_type IN (
        'NONE', 'STRICT', 'FISH_ALLOWED', 'WINE_OIL', 'DRY_EATING', 'FULL_FAST'
    )),
    is_holiday INTEGER NOT NULL DEFAULT 0,
    color TEXT,
    note TEXT,
    created_at TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS saints (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    description TEXT,
    icon TEXT,
    priority TEXT NOT NULL DEFAULT 'COMMEMORATED' CHECK (priority IN (
        'GREAT_SAINT', 'POLYELEOS_SAINT', 'VIGIL_SAINT', 'SIXTH_CLASS', 'COMMEMORATED'
    )),
    created_at TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS readings (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    type TEXT NOT NULL CHECK (type IN (
        'APOSTLE', 'GOSPEL', 'OLD_TESTAMENT', 'PROKEIMENON', 'ALLELUIA'
    )),
    reference TEXT NOT NULL,
    title TEXT,
    text TEXT,
    sort_order INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at TEXT NOT NULL DEFAULT (datetime('now'))
);

-- Many-to-many joins. Deleting either side removes the link.
CREATE TABLE IF NOT EXISTS calendar_day_saints (
    calendar_day_id INTEGER NOT NULL REFERENCES calendar_days(id) ON DELETE CASCADE,
    saint_id INTEGER NOT NULL REFERENCES saints(id) ON DELETE CASCADE,
    PRIMARY KEY (calendar_day_id, saint_id)
);

CREATE TABLE IF NOT EXISTS calendar_day_readings (
    calendar_day_id INTEGER NOT NULL REFERENCES calendar_days(id) ON DELETE CASCADE,
    reading_id INTEGER NOT NULL REFERENCES readings(id) ON DELETE CASCADE,
    PRIMARY KEY (calendar_day_id, reading_id)
);

CREATE INDEX IF NOT EXISTS idx_calendar_day_saints_saint
    ON calendar_day_saints(saint_id);
CREATE INDEX IF NOT EXISTS idx_calendar_day_readings_reading
    ON calendar_day_readings(reading_id);

CREATE TABLE IF NOT EXISTS schedules (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    calendar_day_id INTEGER REFERENCES calendar_days(id) ON DELETE SET NULL,
    date TEXT NOT NULL,
    time TEXT NOT NULL,
    title TEXT NOT NULL,
    description TEXT,
    type TEXT NOT NULL DEFAULT 'REGULAR' CHECK (type IN (
        'REGULAR', 'LITURGY', 'VESPERS', 'MATINS', 'MOLEBEN', 'PANIKHIDA', 'AKATHIST', 'SPECIAL'
    )),
    priority TEXT NOT NULL DEFAULT 'NORMAL' CHECK (priority IN ('NORMAL', 'HOLIDAY', 'SPECIAL')),
    is_visible INTEGER NOT NULL DEFAULT 1,
    created_at TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_schedules_date ON schedules(date);
CREATE INDEX IF NOT EXISTS idx_schedules_day ON schedules(calendar_day_id);
`

// migrationV2Content creates news, pages, menu and carousel tables.
const migrationV2Content = `
CREATE TABLE IF NOT EXISTS news (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    title TEXT NOT NULL,
    slug TEXT NOT NULL UNIQUE,
    excerpt TEXT,
    content TEXT NOT NULL DEFAULT '',
    image_url TEXT,
    published INTEGER NOT NULL DEFAULT 0,
    published_at TEXT,
    author_id INTEGER,
    created_at TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_news_published ON news(published, published_at);

CREATE TABLE IF NOT EXISTS pages (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    title TEXT NOT NULL,
    slug TEXT NOT NULL UNIQUE,
    content TEXT NOT NULL DEFAULT '',
    meta_description TEXT,
    published INTEGER NOT NULL DEFAULT 1,
    created_at TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS menu_items (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    title TEXT NOT NULL,
    url TEXT,
    page_id INTEGER REFERENCES pages(id) ON DELETE SET NULL,
    parent_id INTEGER REFERENCES menu_items(id) ON DELETE CASCADE,
    sort_order INTEGER NOT NULL DEFAULT 0,
    is_visible INTEGER NOT NULL DEFAULT 1,
    created_at TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_menu_items_parent ON menu_items(parent_id);

CREATE TABLE IF NOT EXISTS carousel_slides (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    title TEXT,
    subtitle TEXT,
    image_url TEXT NOT NULL,
    link TEXT,
    sort_order INTEGER NOT NULL DEFAULT 0,
    is_active INTEGER NOT NULL DEFAULT 1,
    created_at TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at TEXT NOT NULL DEFAULT (datetime('now'))
);
`

// migrationV3UsersAndTreby creates accounts and prayer-request orders.
//
// treby.names is a JSON array of strings.
const migrationV3UsersAndTreby = `
CREATE TABLE IF NOT EXISTS users (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    email TEXT NOT NULL UNIQUE,
    name TEXT NOT NULL DEFAULT '',
    role TEXT NOT NULL DEFAULT 'USER' CHECK (role IN ('ADMIN', 'EDITOR', 'USER')),
    password_hash TEXT NOT NULL,
    created_at TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS treby (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    order_number TEXT NOT NULL UNIQUE,
    type TEXT NOT NULL CHECK (type IN ('HEALTH', 'REPOSE', 'MAGPIE', 'MOLEBEN', 'PANIKHIDA')),
    period TEXT NOT NULL CHECK (period IN ('ONCE', 'WEEK', 'FORTY_DAYS', 'HALF_YEAR', 'YEAR')),
    names TEXT NOT NULL DEFAULT '[]',
    notes TEXT,
    email TEXT,
    phone TEXT,
    price INTEGER NOT NULL,
    status TEXT NOT NULL DEFAULT 'PENDING' CHECK (status IN (
        'PENDING', 'PAID', 'IN_PROGRESS', 'COMPLETED', 'CANCELLED'
    )),
    payment_id TEXT,
    paid_at TEXT,
    created_at TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_treby_status ON treby(status, created_at);
`
