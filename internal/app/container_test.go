package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bookingHttp "github.com/nekogravitycat/shareit-backend/internal/booking/http"
	"github.com/nekogravitycat/shareit-backend/internal/config"
	itemHttp "github.com/nekogravitycat/shareit-backend/internal/item/http"
	"github.com/nekogravitycat/shareit-backend/internal/pkg/clock"
	"github.com/nekogravitycat/shareit-backend/internal/pkg/response"
	userHttp "github.com/nekogravitycat/shareit-backend/internal/user/http"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type testApp struct {
	router *gin.Engine
	clock  *clock.MockClock
}

func newTestApp(t *testing.T, rateLimit config.RateLimitConfig) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)
	clk := clock.NewMockClock(testNow)
	c := NewContainer(Config{
		JWTSecret:  "test-secret",
		JWTTTL:     30 * time.Minute,
		BcryptCost: 4, // Lower cost for testing purposes
		RateLimit:  rateLimit,
		Logger:     zerolog.Nop(),
		Clock:      clk,
	})
	return &testApp{router: c.Router, clock: clk}
}

func (a *testApp) executeRequest(method, path string, body any, token string) *httptest.ResponseRecorder {
	var reqBody []byte
	if body != nil {
		reqBody, _ = json.Marshal(body)
	}

	req, _ := http.NewRequest(method, path, bytes.NewBuffer(reqBody))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

// signUp registers a user and logs in, returning the user and an access token.
func (a *testApp) signUp(t *testing.T, name, email string) (userHttp.UserResponse, string) {
	t.Helper()
	w := a.executeRequest("POST", "/v1/auth/register", userHttp.RegisterRequest{
		Email:    email,
		Password: "password123",
		Name:     name,
	}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = a.executeRequest("POST", "/v1/auth/login", userHttp.LoginRequest{
		Email:    email,
		Password: "password123",
	}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[userHttp.LoginResponse](t, w)
	return resp.User, resp.AccessToken
}

func TestBookingFlow(t *testing.T) {
	a := newTestApp(t, config.RateLimitConfig{})

	owner, ownerToken := a.signUp(t, "Olga", "olga@example.com")
	renter, renterToken := a.signUp(t, "Rick", "rick@example.com")
	_, strangerToken := a.signUp(t, "Sam", "sam@example.com")

	available := true
	w := a.executeRequest("POST", "/v1/items", itemHttp.CreateItemRequest{
		Name:        "Drill",
		Description: "Cordless drill",
		Available:   &available,
	}, ownerToken)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	drill := decode[itemHttp.ItemResponse](t, w)

	var bookingID int64

	t.Run("Create Booking: Success", func(t *testing.T) {
		w := a.executeRequest("POST", "/v1/bookings", bookingHttp.CreateBookingRequest{
			ItemID: drill.ID,
			Start:  testNow.Add(time.Hour),
			End:    testNow.Add(2 * time.Hour),
		}, renterToken)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		resp := decode[bookingHttp.BookingResponse](t, w)
		assert.Equal(t, "WAITING", resp.Status)
		assert.Equal(t, drill.ID, resp.Item.ID)
		assert.Equal(t, renter.ID, resp.Booker.ID)
		bookingID = resp.ID
	})

	t.Run("Create Booking: Own Item Is Forbidden", func(t *testing.T) {
		w := a.executeRequest("POST", "/v1/bookings", bookingHttp.CreateBookingRequest{
			ItemID: drill.ID,
			Start:  testNow.Add(time.Hour),
			End:    testNow.Add(2 * time.Hour),
		}, ownerToken)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("Create Booking: End Before Start", func(t *testing.T) {
		w := a.executeRequest("POST", "/v1/bookings", bookingHttp.CreateBookingRequest{
			ItemID: drill.ID,
			Start:  testNow.Add(2 * time.Hour),
			End:    testNow.Add(time.Hour),
		}, renterToken)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Create Booking: Unknown Item", func(t *testing.T) {
		w := a.executeRequest("POST", "/v1/bookings", bookingHttp.CreateBookingRequest{
			ItemID: 999,
			Start:  testNow.Add(time.Hour),
			End:    testNow.Add(2 * time.Hour),
		}, renterToken)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "not_found", decode[response.ErrorResponse](t, w).Kind)
	})

	t.Run("Get Booking: Visible To Both Parties Only", func(t *testing.T) {
		path := fmt.Sprintf("/v1/bookings/%d", bookingID)
		assert.Equal(t, http.StatusOK, a.executeRequest("GET", path, nil, renterToken).Code)
		assert.Equal(t, http.StatusOK, a.executeRequest("GET", path, nil, ownerToken).Code)
		assert.Equal(t, http.StatusBadRequest, a.executeRequest("GET", path, nil, strangerToken).Code)
		assert.Equal(t, http.StatusUnauthorized, a.executeRequest("GET", path, nil, "").Code)
	})

	t.Run("Respond: Only Owner, Only Once", func(t *testing.T) {
		path := fmt.Sprintf("/v1/bookings/%d?approved=true", bookingID)

		assert.Equal(t, http.StatusForbidden, a.executeRequest("PATCH", path, nil, renterToken).Code)

		w := a.executeRequest("PATCH", path, nil, ownerToken)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, "APPROVED", decode[bookingHttp.BookingResponse](t, w).Status)

		w = a.executeRequest("PATCH", fmt.Sprintf("/v1/bookings/%d?approved=false", bookingID), nil, ownerToken)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, "invalid_state", decode[response.ErrorResponse](t, w).Kind)

		w = a.executeRequest("PATCH", fmt.Sprintf("/v1/bookings/%d", bookingID), nil, ownerToken)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("List Bookings: States", func(t *testing.T) {
		w := a.executeRequest("GET", "/v1/bookings?state=FUTURE", nil, renterToken)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Len(t, decode[[]bookingHttp.BookingResponse](t, w), 1)

		w = a.executeRequest("GET", "/v1/bookings", nil, renterToken)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Len(t, decode[[]bookingHttp.BookingResponse](t, w), 1)

		w = a.executeRequest("GET", "/v1/bookings?state=PAST", nil, renterToken)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "[]", w.Body.String())

		w = a.executeRequest("GET", "/v1/bookings?state=UNSUPPORTED_STATUS", nil, renterToken)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, decode[response.ErrorResponse](t, w).Error, "Unknown state")

		w = a.executeRequest("GET", "/v1/bookings/owner?state=APPROVED", nil, ownerToken)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Len(t, decode[[]bookingHttp.BookingResponse](t, w), 1)

		w = a.executeRequest("GET", "/v1/bookings/owner", nil, renterToken)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	commentPath := fmt.Sprintf("/v1/items/%d/comment", drill.ID)

	t.Run("Comment: Requires Finished Booking", func(t *testing.T) {
		w := a.executeRequest("POST", commentPath, itemHttp.CreateCommentRequest{Text: "Great drill"}, renterToken)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		msg := decode[response.ErrorResponse](t, w).Error
		assert.Contains(t, msg, fmt.Sprintf("user %d", renter.ID))
		assert.Contains(t, msg, fmt.Sprintf("item %d", drill.ID))
	})

	a.clock.Add(3 * time.Hour)

	t.Run("Comment: Allowed After Rental Ends", func(t *testing.T) {
		w := a.executeRequest("GET", "/v1/bookings?state=PAST", nil, renterToken)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Len(t, decode[[]bookingHttp.BookingResponse](t, w), 1)

		w = a.executeRequest("POST", commentPath, itemHttp.CreateCommentRequest{Text: "Great drill"}, renterToken)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		assert.Equal(t, "Rick", decode[itemHttp.CommentResponse](t, w).AuthorName)
	})

	t.Run("Item View: Bookings Only For Owner", func(t *testing.T) {
		path := fmt.Sprintf("/v1/items/%d", drill.ID)

		w := a.executeRequest("GET", path, nil, ownerToken)
		require.Equal(t, http.StatusOK, w.Code)
		ownerView := decode[itemHttp.ItemViewResponse](t, w)
		require.NotNil(t, ownerView.LastBooking)
		assert.Equal(t, bookingID, ownerView.LastBooking.ID)
		assert.Nil(t, ownerView.NextBooking)
		assert.Len(t, ownerView.Comments, 1)

		w = a.executeRequest("GET", path, nil, renterToken)
		require.Equal(t, http.StatusOK, w.Code)
		renterView := decode[itemHttp.ItemViewResponse](t, w)
		assert.Nil(t, renterView.LastBooking)
		assert.Len(t, renterView.Comments, 1)

		w = a.executeRequest("GET", "/v1/items", nil, ownerToken)
		require.Equal(t, http.StatusOK, w.Code)
		list := decode[[]itemHttp.ItemViewResponse](t, w)
		require.Len(t, list, 1)
		assert.NotNil(t, list[0].LastBooking)
	})

	t.Run("Item Edit: Non-Owner Gets Not Found", func(t *testing.T) {
		name := "Stolen"
		path := fmt.Sprintf("/v1/items/%d", drill.ID)
		w := a.executeRequest("PATCH", path, itemHttp.UpdateItemRequest{Name: &name}, renterToken)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, http.StatusNotFound, a.executeRequest("DELETE", path, nil, renterToken).Code)
	})

	t.Run("Search: Case Insensitive, Available Only", func(t *testing.T) {
		hidden := false
		w := a.executeRequest("POST", "/v1/items", itemHttp.CreateItemRequest{
			Name:        "Old drill",
			Description: "broken",
			Available:   &hidden,
		}, ownerToken)
		require.Equal(t, http.StatusCreated, w.Code)

		w = a.executeRequest("GET", "/v1/items/search?text=DRILL", nil, strangerToken)
		require.Equal(t, http.StatusOK, w.Code)
		found := decode[[]itemHttp.ItemResponse](t, w)
		require.Len(t, found, 1)
		assert.Equal(t, drill.ID, found[0].ID)

		w = a.executeRequest("GET", "/v1/items/search?text=", nil, strangerToken)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "[]", w.Body.String())

		w = a.executeRequest("GET", "/v1/items/search?text=drill&from=-1", nil, strangerToken)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		w = a.executeRequest("GET", "/v1/items/search?text=drill&size=0", nil, strangerToken)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Users: Self Only Edits, Unique Email", func(t *testing.T) {
		name := "Olga K"
		w := a.executeRequest("PATCH", fmt.Sprintf("/v1/users/%d", owner.ID), userHttp.UpdateUserRequest{Name: &name}, renterToken)
		assert.Equal(t, http.StatusForbidden, w.Code)

		w = a.executeRequest("PATCH", fmt.Sprintf("/v1/users/%d", owner.ID), userHttp.UpdateUserRequest{Name: &name}, ownerToken)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "Olga K", decode[userHttp.UserResponse](t, w).Name)

		w = a.executeRequest("POST", "/v1/auth/register", userHttp.RegisterRequest{
			Email:    "OLGA@example.com",
			Password: "password123",
			Name:     "Impostor",
		}, "")
		assert.Equal(t, http.StatusConflict, w.Code)

		w = a.executeRequest("GET", "/v1/me", nil, renterToken)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, renter.ID, decode[userHttp.UserResponse](t, w).ID)

		w = a.executeRequest("GET", "/v1/users", nil, renterToken)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Len(t, decode[[]userHttp.UserResponse](t, w), 3)

		w = a.executeRequest("POST", "/v1/auth/login", userHttp.LoginRequest{Email: "rick@example.com", Password: "nope"}, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestPublicEndpoints(t *testing.T) {
	a := newTestApp(t, config.RateLimitConfig{})

	w := a.executeRequest("GET", "/healthz", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = a.executeRequest("GET", "/metrics", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimit(t *testing.T) {
	a := newTestApp(t, config.RateLimitConfig{RPS: 0.001, Burst: 2})

	login := userHttp.LoginRequest{Email: "nobody@example.com", Password: "password123"}
	assert.Equal(t, http.StatusUnauthorized, a.executeRequest("POST", "/v1/auth/login", login, "").Code)
	assert.Equal(t, http.StatusUnauthorized, a.executeRequest("POST", "/v1/auth/login", login, "").Code)
	assert.Equal(t, http.StatusTooManyRequests, a.executeRequest("POST", "/v1/auth/login", login, "").Code)

	// Routes outside /v1 are not limited.
	assert.Equal(t, http.StatusOK, a.executeRequest("GET", "/healthz", nil, "").Code)
}

func (a *testApp) createItem(t *testing.T, token, name string) itemHttp.ItemResponse {
	t.Helper()
	available := true
	w := a.executeRequest("POST", "/v1/items", itemHttp.CreateItemRequest{
		Name:        name,
		Description: "for rent",
		Available:   &available,
	}, token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[itemHttp.ItemResponse](t, w)
}

func (a *testApp) createBooking(t *testing.T, token string, itemID int64) bookingHttp.BookingResponse {
	t.Helper()
	w := a.executeRequest("POST", "/v1/bookings", bookingHttp.CreateBookingRequest{
		ItemID: itemID,
		Start:  a.clock.Now().Add(time.Hour),
		End:    a.clock.Now().Add(2 * time.Hour),
	}, token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[bookingHttp.BookingResponse](t, w)
}

func TestDeleteOwnerRemovesItemsAndBookings(t *testing.T) {
	a := newTestApp(t, config.RateLimitConfig{})

	owner, ownerToken := a.signUp(t, "Olga", "olga@example.com")
	_, renterToken := a.signUp(t, "Rick", "rick@example.com")
	drill := a.createItem(t, ownerToken, "Drill")
	b := a.createBooking(t, renterToken, drill.ID)

	w := a.executeRequest("DELETE", fmt.Sprintf("/v1/users/%d", owner.ID), nil, ownerToken)
	require.Equal(t, http.StatusNoContent, w.Code)

	assert.Equal(t, http.StatusNotFound, a.executeRequest("GET", fmt.Sprintf("/v1/bookings/%d", b.ID), nil, renterToken).Code)
	assert.Equal(t, http.StatusNotFound, a.executeRequest("GET", fmt.Sprintf("/v1/items/%d", drill.ID), nil, renterToken).Code)

	w = a.executeRequest("POST", "/v1/bookings", bookingHttp.CreateBookingRequest{
		ItemID: drill.ID,
		Start:  testNow.Add(time.Hour),
		End:    testNow.Add(2 * time.Hour),
	}, renterToken)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = a.executeRequest("GET", "/v1/items/search?text=drill", nil, renterToken)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", w.Body.String())

	w = a.executeRequest("GET", "/v1/bookings", nil, renterToken)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", w.Body.String())
}

func TestDeleteRenterRemovesBookingsAndComments(t *testing.T) {
	a := newTestApp(t, config.RateLimitConfig{})

	_, ownerToken := a.signUp(t, "Olga", "olga@example.com")
	renter, renterToken := a.signUp(t, "Rick", "rick@example.com")
	drill := a.createItem(t, ownerToken, "Drill")
	b := a.createBooking(t, renterToken, drill.ID)

	require.Equal(t, http.StatusOK,
		a.executeRequest("PATCH", fmt.Sprintf("/v1/bookings/%d?approved=true", b.ID), nil, ownerToken).Code)
	a.clock.Add(3 * time.Hour)
	w := a.executeRequest("POST", fmt.Sprintf("/v1/items/%d/comment", drill.ID), itemHttp.CreateCommentRequest{Text: "Solid"}, renterToken)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	require.Equal(t, http.StatusNoContent,
		a.executeRequest("DELETE", fmt.Sprintf("/v1/users/%d", renter.ID), nil, renterToken).Code)

	assert.Equal(t, http.StatusNotFound, a.executeRequest("GET", fmt.Sprintf("/v1/bookings/%d", b.ID), nil, ownerToken).Code)

	w = a.executeRequest("GET", fmt.Sprintf("/v1/items/%d", drill.ID), nil, ownerToken)
	require.Equal(t, http.StatusOK, w.Code)
	view := decode[itemHttp.ItemViewResponse](t, w)
	assert.Empty(t, view.Comments)
	assert.Nil(t, view.LastBooking)
}

func TestDeleteItemRemovesBookings(t *testing.T) {
	a := newTestApp(t, config.RateLimitConfig{})

	_, ownerToken := a.signUp(t, "Olga", "olga@example.com")
	_, renterToken := a.signUp(t, "Rick", "rick@example.com")
	drill := a.createItem(t, ownerToken, "Drill")
	saw := a.createItem(t, ownerToken, "Saw")
	gone := a.createBooking(t, renterToken, drill.ID)
	kept := a.createBooking(t, renterToken, saw.ID)

	require.Equal(t, http.StatusNoContent,
		a.executeRequest("DELETE", fmt.Sprintf("/v1/items/%d", drill.ID), nil, ownerToken).Code)

	assert.Equal(t, http.StatusNotFound, a.executeRequest("GET", fmt.Sprintf("/v1/bookings/%d", gone.ID), nil, renterToken).Code)

	w := a.executeRequest("GET", "/v1/bookings/owner", nil, ownerToken)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[[]bookingHttp.BookingResponse](t, w)
	require.Len(t, list, 1)
	assert.Equal(t, kept.ID, list[0].ID)

	w = a.executeRequest("GET", "/v1/bookings", nil, renterToken)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]bookingHttp.BookingResponse](t, w), 1)
}

func TestRenamesShowInBookingsAndComments(t *testing.T) {
	a := newTestApp(t, config.RateLimitConfig{})

	_, ownerToken := a.signUp(t, "Olga", "olga@example.com")
	renter, renterToken := a.signUp(t, "Rick", "rick@example.com")
	drill := a.createItem(t, ownerToken, "Drill")
	b := a.createBooking(t, renterToken, drill.ID)

	require.Equal(t, http.StatusOK,
		a.executeRequest("PATCH", fmt.Sprintf("/v1/bookings/%d?approved=true", b.ID), nil, ownerToken).Code)
	a.clock.Add(3 * time.Hour)
	require.Equal(t, http.StatusCreated,
		a.executeRequest("POST", fmt.Sprintf("/v1/items/%d/comment", drill.ID), itemHttp.CreateCommentRequest{Text: "Solid"}, renterToken).Code)

	itemName := "Hammer drill"
	require.Equal(t, http.StatusOK,
		a.executeRequest("PATCH", fmt.Sprintf("/v1/items/%d", drill.ID), itemHttp.UpdateItemRequest{Name: &itemName}, ownerToken).Code)
	userName := "Richard"
	require.Equal(t, http.StatusOK,
		a.executeRequest("PATCH", fmt.Sprintf("/v1/users/%d", renter.ID), userHttp.UpdateUserRequest{Name: &userName}, renterToken).Code)

	w := a.executeRequest("GET", fmt.Sprintf("/v1/bookings/%d", b.ID), nil, ownerToken)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[bookingHttp.BookingResponse](t, w)
	assert.Equal(t, "Hammer drill", got.Item.Name)
	assert.Equal(t, "Richard", got.Booker.Name)

	w = a.executeRequest("GET", "/v1/bookings/owner", nil, ownerToken)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[[]bookingHttp.BookingResponse](t, w)
	require.Len(t, list, 1)
	assert.Equal(t, "Richard", list[0].Booker.Name)

	w = a.executeRequest("GET", fmt.Sprintf("/v1/items/%d", drill.ID), nil, ownerToken)
	require.Equal(t, http.StatusOK, w.Code)
	view := decode[itemHttp.ItemViewResponse](t, w)
	require.Len(t, view.Comments, 1)
	assert.Equal(t, "Richard", view.Comments[0].AuthorName)
}
