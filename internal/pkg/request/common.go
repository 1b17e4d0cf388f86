package request

// ByIDRequest is a common struct for endpoints that require an ID path parameter.
type ByIDRequest struct {
	ID int64 `uri:"id" binding:"required,min=1"`
}

// PageParams carries the offset-style pagination used by list endpoints.
// Range checks happen in the services so that they surface as validation errors.
type PageParams struct {
	From int `form:"from,default=0"`
	Size int `form:"size,default=10"`
}
