package database

import (
	"time"
)

// -----------------------------------------------------------------
// Calendar
// -----------------------------------------------------------------

// DayPriority ranks a calendar day. Declared from highest to lowest.
type DayPriority string

const (
	DayPriorityGreatFeast  DayPriority = "GREAT_FEAST"
	DayPriorityTwelveFeast DayPriority = "TWELVE_FEAST"
	DayPriorityPolyeleos   DayPriority = "POLYELEOS"
	DayPriorityVigil       DayPriority = "VIGIL"
	DayPrioritySixthClass  DayPriority = "SIXTH_CLASS"
	DayPriorityNormal      DayPriority = "NORMAL"
)

// ValidDayPriorities returns all day priorities, highest first.
func ValidDayPriorities() []DayPriority {
	return []DayPriority{
		DayPriorityGreatFeast,
		DayPriorityTwelveFeast,
		DayPriorityPolyeleos,
		DayPriorityVigil,
		DayPrioritySixthClass,
		DayPriorityNormal,
	}
}

// IsValid checks if a day priority is valid.
func (p DayPriority) IsValid() bool {
	return contains(ValidDayPriorities(), p)
}

// FastingType describes the fasting rule of a day.
type FastingType string

const (
	FastingNone        FastingType = "NONE"
	FastingStrict      FastingType = "STRICT"
	FastingFishAllowed FastingType = "FISH_ALLOWED"
	FastingWineOil     FastingType = "WINE_OIL"
	FastingDryEating   FastingType = "DRY_EATING"
	FastingFullFast    FastingType = "FULL_FAST"
)

// ValidFastingTypes returns all fasting types.
func ValidFastingTypes() []FastingType {
	return []FastingType{
		FastingNone,
		FastingStrict,
		FastingFishAllowed,
		FastingWineOil,
		FastingDryEating,
		FastingFullFast,
	}
}

// IsValid checks if a fasting type is valid.
func (f FastingType) IsValid() bool {
	return contains(ValidFastingTypes(), f)
}

// SaintPriority ranks a commemoration.
type SaintPriority string

const (
	SaintPriorityGreat        SaintPriority = "GREAT_SAINT"
	SaintPriorityPolyeleos    SaintPriority = "POLYELEOS_SAINT"
	SaintPriorityVigil        SaintPriority = "VIGIL_SAINT"
	SaintPrioritySixthClass   SaintPriority = "SIXTH_CLASS"
	SaintPriorityCommemorated SaintPriority = "COMMEMORATED"
)

// ValidSaintPriorities returns all saint priorities, highest first.
func ValidSaintPriorities() []SaintPriority {
	return []SaintPriority{
		SaintPriorityGreat,
		SaintPriorityPolyeleos,
		SaintPriorityVigil,
		SaintPrioritySixthClass,
		SaintPriorityCommemorated,
	}
}

// IsValid checks if a saint priority is valid.
func (p SaintPriority) IsValid() bool {
	return contains(ValidSaintPriorities(), p)
}

// ReadingType defines the category of a scripture reading.
type ReadingType string

const (
	ReadingTypeApostle      ReadingType = "APOSTLE"
	ReadingTypeGospel       ReadingType = "GOSPEL"
	ReadingTypeOldTestament ReadingType = "OLD_TESTAMENT"
	ReadingTypeProkeimenon  ReadingType = "PROKEIMENON"
	ReadingTypeAlleluia     ReadingType = "ALLELUIA"
)

// ValidReadingTypes returns all valid reading types.
func ValidReadingTypes() []ReadingType {
	return []ReadingType{
		ReadingTypeApostle,
		ReadingTypeGospel,
		ReadingTypeOldTestament,
		ReadingTypeProkeimenon,
		ReadingTypeAlleluia,
	}
}

// IsValid checks if a reading type is valid.
func (rt ReadingType) IsValid() bool {
	return contains(ValidReadingTypes(), rt)
}

// ScheduleType is the kind of service.
type ScheduleType string

const (
	ScheduleRegular   ScheduleType = "REGULAR"
	ScheduleLiturgy   ScheduleType = "LITURGY"
	ScheduleVespers   ScheduleType = "VESPERS"
	ScheduleMatins    ScheduleType = "MATINS"
	ScheduleMoleben   ScheduleType = "MOLEBEN"
	SchedulePanikhida ScheduleType = "PANIKHIDA"
	ScheduleAkathist  ScheduleType = "AKATHIST"
	ScheduleSpecial   ScheduleType = "SPECIAL"
)

// ValidScheduleTypes returns all schedule types.
func ValidScheduleTypes() []ScheduleType {
	return []ScheduleType{
		ScheduleRegular,
		ScheduleLiturgy,
		ScheduleVespers,
		ScheduleMatins,
		ScheduleMoleben,
		SchedulePanikhida,
		ScheduleAkathist,
		ScheduleSpecial,
	}
}

// IsValid checks if a schedule type is valid.
func (t ScheduleType) IsValid() bool {
	return contains(ValidScheduleTypes(), t)
}

// SchedulePriority is declared in ascending order: NORMAL < HOLIDAY < SPECIAL.
// Listings sort it descending.
type SchedulePriority string

const (
	SchedulePriorityNormal  SchedulePriority = "NORMAL"
	SchedulePriorityHoliday SchedulePriority = "HOLIDAY"
	SchedulePrioritySpecial SchedulePriority = "SPECIAL"
)

// ValidSchedulePriorities returns all schedule priorities in declared order.
func ValidSchedulePriorities() []SchedulePriority {
	return []SchedulePriority{
		SchedulePriorityNormal,
		SchedulePriorityHoliday,
		SchedulePrioritySpecial,
	}
}

// IsValid checks if a schedule priority is valid.
func (p SchedulePriority) IsValid() bool {
	return contains(ValidSchedulePriorities(), p)
}

// CalendarDay is one civil date of liturgical metadata.
//
// Stored is the instant persisted in calendar_days.date. Date is the
// YYYY-MM-DD label the calendar service assigns before the day leaves the
// process; the database layer leaves it empty.
type CalendarDay struct {
	ID          int64       `json:"id"`
	Date        string      `json:"date"`
	Stored      time.Time   `json:"-"`
	Priority    DayPriority `json:"priority"`
	FastingType FastingType `json:"fastingType"`
	IsHoliday   bool        `json:"isHoliday"`
	Color       *string     `json:"color"`
	Note        *string     `json:"note"`
	Saints      []Saint     `json:"saints"`
	Readings    []Reading   `json:"readings"`
	Schedules   []Schedule  `json:"schedules"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// DayFields are the editable attributes of a calendar day.
type DayFields struct {
	Priority    DayPriority
	FastingType FastingType
	IsHoliday   bool
	Color       *string
	Note        *string
}

// Saint is a commemoration that can be attached to many days.
type Saint struct {
	ID          int64         `json:"id"`
	Name        string        `json:"name"`
	Description *string       `json:"description"`
	Icon        *string       `json:"icon"`
	Priority    SaintPriority `json:"priority"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

// Reading is a scripture reading that can be attached to many days.
type Reading struct {
	ID        int64       `json:"id"`
	Type      ReadingType `json:"type"`
	Reference string      `json:"reference"`
	Title     *string     `json:"title"`
	Text      *string     `json:"text"`
	Order     int         `json:"order"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// Schedule is one service in the parish timetable.
type Schedule struct {
	ID            int64            `json:"id"`
	CalendarDayID *int64           `json:"calendarDayId"`
	Date          string           `json:"date"`
	Stored        time.Time        `json:"-"`
	Time          string           `json:"time"` // HH:mm
	Title         string           `json:"title"`
	Description   *string          `json:"description"`
	Type          ScheduleType     `json:"type"`
	Priority      SchedulePriority `json:"priority"`
	IsVisible     bool             `json:"isVisible"`
	CreatedAt     time.Time        `json:"createdAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`
}

// -----------------------------------------------------------------
// Content
// -----------------------------------------------------------------

// News is a parish news article.
type News struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Slug        string     `json:"slug"`
	Excerpt     *string    `json:"excerpt"`
	Content     string     `json:"content"`
	ImageURL    *string    `json:"imageUrl"`
	Published   bool       `json:"published"`
	PublishedAt *time.Time `json:"publishedAt"`
	AuthorID    *int64     `json:"authorId"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Page is a static site page.
type Page struct {
	ID              int64     `json:"id"`
	Title           string    `json:"title"`
	Slug            string    `json:"slug"`
	Content         string    `json:"content"`
	MetaDescription *string   `json:"metaDescription"`
	Published       bool      `json:"published"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// MenuItem is a node of the site navigation.
type MenuItem struct {
	ID        int64      `json:"id"`
	Title     string     `json:"title"`
	URL       *string    `json:"url"`
	PageID    *int64     `json:"pageId"`
	PageSlug  *string    `json:"pageSlug,omitempty"`
	ParentID  *int64     `json:"parentId"`
	Order     int        `json:"order"`
	IsVisible bool       `json:"isVisible"`
	Children  []MenuItem `json:"children,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// MenuPosition moves one menu item during a reorder.
type MenuPosition struct {
	ID       int64  `json:"id"`
	Order    int    `json:"order"`
	ParentID *int64 `json:"parentId"`
}

// CarouselSlide is one image of the home page carousel.
type CarouselSlide struct {
	ID        int64     `json:"id"`
	Title     *string   `json:"title"`
	Subtitle  *string   `json:"subtitle"`
	ImageURL  string    `json:"imageUrl"`
	Link      *string   `json:"link"`
	Order     int       `json:"order"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SitemapEntry is one public URL.
type SitemapEntry struct {
	Kind      string    `json:"kind"` // page or news
	Slug      string    `json:"slug"`
	Title     string    `json:"title"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// -----------------------------------------------------------------
// Users
// -----------------------------------------------------------------

// Role controls what a user may change.
type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleEditor Role = "EDITOR"
	RoleUser   Role = "USER"
)

// IsValid checks if a role is valid.
func (r Role) IsValid() bool {
	return contains([]Role{RoleAdmin, RoleEditor, RoleUser}, r)
}

// User is an account that can sign in.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         Role      `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// -----------------------------------------------------------------
// Treby
// -----------------------------------------------------------------

// TrebaType is the kind of commemoration requested.
type TrebaType string

const (
	TrebaHealth    TrebaType = "HEALTH"
	TrebaRepose    TrebaType = "REPOSE"
	TrebaMagpie    TrebaType = "MAGPIE"
	TrebaMoleben   TrebaType = "MOLEBEN"
	TrebaPanikhida TrebaType = "PANIKHIDA"
)

// ValidTrebaTypes returns all treba types.
func ValidTrebaTypes() []TrebaType {
	return []TrebaType{TrebaHealth, TrebaRepose, TrebaMagpie, TrebaMoleben, TrebaPanikhida}
}

// IsValid checks if a treba type is valid.
func (t TrebaType) IsValid() bool {
	return contains(ValidTrebaTypes(), t)
}

// TrebaPeriod is how long the names are commemorated.
type TrebaPeriod string

const (
	PeriodOnce      TrebaPeriod = "ONCE"
	PeriodWeek      TrebaPeriod = "WEEK"
	PeriodFortyDays TrebaPeriod = "FORTY_DAYS"
	PeriodHalfYear  TrebaPeriod = "HALF_YEAR"
	PeriodYear      TrebaPeriod = "YEAR"
)

// ValidTrebaPeriods returns all periods.
func ValidTrebaPeriods() []TrebaPeriod {
	return []TrebaPeriod{PeriodOnce, PeriodWeek, PeriodFortyDays, PeriodHalfYear, PeriodYear}
}

// IsValid checks if a period is valid.
func (p TrebaPeriod) IsValid() bool {
	return contains(ValidTrebaPeriods(), p)
}

// TrebaStatus tracks an order through payment and fulfilment.
type TrebaStatus string

const (
	TrebaPending    TrebaStatus = "PENDING"
	TrebaPaid       TrebaStatus = "PAID"
	TrebaInProgress TrebaStatus = "IN_PROGRESS"
	TrebaCompleted  TrebaStatus = "COMPLETED"
	TrebaCancelled  TrebaStatus = "CANCELLED"
)

// ValidTrebaStatuses returns all statuses.
func ValidTrebaStatuses() []TrebaStatus {
	return []TrebaStatus{TrebaPending, TrebaPaid, TrebaInProgress, TrebaCompleted, TrebaCancelled}
}

// IsValid checks if a status is valid.
func (s TrebaStatus) IsValid() bool {
	return contains(ValidTrebaStatuses(), s)
}

// Treba is a paid prayer-commemoration request.
type Treba struct {
	ID          int64       `json:"id"`
	OrderNumber string      `json:"orderNumber"`
	Type        TrebaType   `json:"type"`
	Period      TrebaPeriod `json:"period"`
	Names       []string    `json:"names"`
	Notes       *string     `json:"notes"`
	Email       *string     `json:"email"`
	Phone       *string     `json:"phone"`
	Price       int64       `json:"price"`
	Status      TrebaStatus `json:"status"`
	PaymentID   *string     `json:"paymentId"`
	PaidAt      *time.Time  `json:"paidAt"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

func contains[T comparable](list []T, v T) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
