package http

import (
	"time"

	bookingHttp "github.com/nekogravitycat/shareit-backend/internal/booking/http"
	"github.com/nekogravitycat/shareit-backend/internal/item"
	"github.com/nekogravitycat/shareit-backend/internal/pkg/request"
)

type CreateItemRequest struct {
	Name        string `json:"name" binding:"required,max=255"`
	Description string `json:"description" binding:"required,max=1000"`
	Available   *bool  `json:"available" binding:"required"`
	RequestID   *int64 `json:"requestId" binding:"omitempty,min=1"`
}

// UpdateItemRequest uses pointers to distinguish between "field not sent" and "field sent as empty".
type UpdateItemRequest struct {
	Name        *string `json:"name" binding:"omitempty,max=255"`
	Description *string `json:"description" binding:"omitempty,max=1000"`
	Available   *bool   `json:"available"`
}

type SearchItemsRequest struct {
	request.PageParams
	Text string `form:"text"`
}

type CreateCommentRequest struct {
	Text string `json:"text" binding:"required,max=2000"`
}

type CommentResponse struct {
	ID         int64     `json:"id"`
	Text       string    `json:"text"`
	AuthorName string    `json:"authorName"`
	Created    time.Time `json:"created"`
}

func NewCommentResponse(c *item.Comment) CommentResponse {
	return CommentResponse{
		ID:         c.ID,
		Text:       c.Text,
		AuthorName: c.AuthorName,
		Created:    c.CreatedAt,
	}
}

type ItemResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Available   bool   `json:"available"`
	RequestID   *int64 `json:"requestId,omitempty"`
}

func NewItemResponse(it *item.Item) ItemResponse {
	return ItemResponse{
		ID:          it.ID,
		Name:        it.Name,
		Description: it.Description,
		Available:   it.Available,
		RequestID:   it.RequestID,
	}
}

// ItemViewResponse is an item with its comments and, for the owner, its nearest bookings.
type ItemViewResponse struct {
	ItemResponse
	LastBooking *bookingHttp.BookingShort `json:"lastBooking"`
	NextBooking *bookingHttp.BookingShort `json:"nextBooking"`
	Comments    []CommentResponse         `json:"comments"`
}

func NewItemViewResponse(v *item.View) ItemViewResponse {
	comments := make([]CommentResponse, len(v.Comments))
	for i, c := range v.Comments {
		comments[i] = NewCommentResponse(c)
	}
	return ItemViewResponse{
		ItemResponse: NewItemResponse(v.Item),
		LastBooking:  bookingHttp.NewBookingShort(v.LastBooking),
		NextBooking:  bookingHttp.NewBookingShort(v.NextBooking),
		Comments:     comments,
	}
}
