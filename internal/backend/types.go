package backend

import "time"

// Tier is the subscription level the API reports for a user or plan.
type Tier string

const (
	TierFree   Tier = "free"
	TierChef   Tier = "chef"
	TierMaster Tier = "master"
)

// Valid reports whether t is one of the known tiers.
func (t Tier) Valid() bool {
	switch t {
	case TierFree, TierChef, TierMaster:
		return true
	}
	return false
}

type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Avatar    string    `json:"avatar,omitempty"`
	Plan      Tier      `json:"plan,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
}

// Session is the result of a successful login.
type Session struct {
	Token       string `json:"token"`
	AccessToken string `json:"access_token"`
	User        *User  `json:"user,omitempty"`
}

// BearerToken returns whichever token field the API filled.
func (s Session) BearerToken() string {
	if s.Token != "" {
		return s.Token
	}
	return s.AccessToken
}

type Registration struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// PasswordChange is step one of the reset flow.
type PasswordChange struct {
	Email           string `json:"email"`
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// CodeConfirmation is step two of the reset flow.
type CodeConfirmation struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"newPassword"`
}

type Recipe struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	Ingredients []string  `json:"ingredients,omitempty"`
	Steps       []string  `json:"steps,omitempty"`
	PrepMinutes int       `json:"prepTime,omitempty"`
	CookMinutes int       `json:"cookTime,omitempty"`
	Servings    int       `json:"servings,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	Favorite    bool      `json:"isFavorite,omitempty"`
	CreatedAt   time.Time `json:"createdAt,omitempty"`
}

// RecipeQuery filters the recipe list.
type RecipeQuery struct {
	Search string
	Page   int
	Limit  int
}

// GenerateRequest asks the API to generate a recipe from a prompt.
type GenerateRequest struct {
	Prompt      string   `json:"prompt"`
	Ingredients []string `json:"ingredients,omitempty"`
}

type HistoryEntry struct {
	ID       string    `json:"id"`
	Recipe   Recipe    `json:"recipe"`
	ViewedAt time.Time `json:"createdAt"`
}

type Post struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Body       string    `json:"content"`
	ImageURL   string    `json:"imageUrl,omitempty"`
	AuthorName string    `json:"authorName,omitempty"`
	Comments   int       `json:"commentsCount,omitempty"`
	CreatedAt  time.Time `json:"createdAt,omitempty"`
}

type NewPost struct {
	Title    string `json:"title"`
	Body     string `json:"content"`
	ImageURL string `json:"imageUrl,omitempty"`
}

type ChatMessage struct {
	ID         string    `json:"id"`
	PostID     string    `json:"postId"`
	AuthorName string    `json:"authorName,omitempty"`
	Body       string    `json:"message"`
	CreatedAt  time.Time `json:"createdAt,omitempty"`
}

type Plan struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Tier       Tier     `json:"tier"`
	PriceCents int64    `json:"price"`
	Currency   string   `json:"currency,omitempty"`
	Interval   string   `json:"interval,omitempty"`
	Features   []string `json:"features,omitempty"`
	ProductID  string   `json:"stripeProductId,omitempty"`
}

// Product is a payment-provider product as relayed by the API.
type Product struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	PriceID     string            `json:"priceId,omitempty"`
	UnitAmount  int64             `json:"unitAmount,omitempty"`
	Currency    string            `json:"currency,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type Subscription struct {
	ID                string    `json:"id"`
	PlanID            string    `json:"planId"`
	Tier              Tier      `json:"tier,omitempty"`
	Status            string    `json:"status"`
	CurrentPeriodEnd  time.Time `json:"currentPeriodEnd,omitempty"`
	CancelAtPeriodEnd bool      `json:"cancelAtPeriodEnd,omitempty"`
}

// PaymentRequest submits a browser-tokenized payment method for a plan.
// Card data never reaches this type.
type PaymentRequest struct {
	PlanID          string `json:"planId"`
	PaymentMethodID string `json:"paymentMethodId"`
}

// PaymentResult is the API's view of the resulting payment intent.
type PaymentResult struct {
	SubscriptionID  string `json:"subscriptionId"`
	PaymentIntentID string `json:"paymentIntentId,omitempty"`
	Status          string `json:"status"`
	ClientSecret    string `json:"clientSecret,omitempty"`
	Message         string `json:"message,omitempty"`
}
