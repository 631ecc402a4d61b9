package controllers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/render"
)

// APIResponse 统一API响应结构
type APIResponse struct {
	Status int         `json:"status" example:"0"`
	Msg    string      `json:"msg" example:"操作成功"`
	Data   interface{} `json:"data,omitempty"`

	httpStatus int
}

// Render 实现render.Renderer接口，错误响应时设置HTTP状态码
func (resp *APIResponse) Render(w http.ResponseWriter, r *http.Request) error {
	if resp.httpStatus > 0 {
		render.Status(r, resp.httpStatus)
	}
	return nil
}

// PaginatedResponse 分页响应结构
type PaginatedResponse struct {
	Status int         `json:"status" example:"0"`
	Msg    string      `json:"msg" example:"操作成功"`
	Data   interface{} `json:"data"`
	Total  int64       `json:"total" example:"100"`
	Page   int         `json:"page" example:"1"`
	Size   int         `json:"size" example:"10"`
}

// Render 实现render.Renderer接口
func (resp *PaginatedResponse) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

// SuccessResponse 构建成功响应
func SuccessResponse(msg string, data interface{}) *APIResponse {
	return &APIResponse{
		Status: 0,
		Msg:    msg,
		Data:   data,
	}
}

// ErrorResponse 构建错误响应，err不为空时附带错误详情
func ErrorResponse(status int, msg string, err error) *APIResponse {
	resp := &APIResponse{
		Status:     status,
		Msg:        msg,
		httpStatus: status,
	}
	if err != nil {
		resp.Data = err.Error()
	}
	return resp
}

// PaginatedSuccessResponse 构建分页成功响应
func PaginatedSuccessResponse(msg string, data interface{}, total int64, page, size int) *PaginatedResponse {
	return &PaginatedResponse{
		Status: 0,
		Msg:    msg,
		Data:   data,
		Total:  total,
		Page:   page,
		Size:   size,
	}
}

// parsePagination 解析分页查询参数，page默认1，size默认10且上限100
func parsePagination(r *http.Request) (int, int) {
	page := 1
	size := 10
	if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 0 {
		page = p
	}
	if s, err := strconv.Atoi(r.URL.Query().Get("size")); err == nil && s > 0 && s <= 100 {
		size = s
	}
	return page, size
}
