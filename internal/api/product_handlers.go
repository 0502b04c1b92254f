package api

import (
	"net/http"

	"commerce-api/internal/service"

	"github.com/gin-gonic/gin"
)

// listProducts handles catalog listing
func (h *Handler) listProducts(c *gin.Context) {
	page, perPage, offset := pageParams(c)

	products, total, err := h.productService.ListProducts(c.Request.Context(), actorFrom(c), perPage, offset)
	if err != nil {
		h.respondDomainError(c, err)
		return
	}
	h.respondPage(c, "OK", products, NewMeta(page, perPage, total))
}

// searchProducts handles catalog search
func (h *Handler) searchProducts(c *gin.Context) {
	term := c.Query("q")
	if term == "" {
		h.respondError(c, http.StatusUnprocessableEntity, "Missing search term", nil)
		return
	}
	page, perPage, offset := pageParams(c)

	products, total, err := h.productService.SearchProducts(c.Request.Context(), term, perPage, offset)
	if err != nil {
		h.respondDomainError(c, err)
		return
	}
	h.respondPage(c, "OK", products, NewMeta(page, perPage, total))
}

// getProduct handles product retrieval
func (h *Handler) getProduct(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		h.respondError(c, http.StatusUnprocessableEntity, "Invalid product ID", nil)
		return
	}

	product, err := h.productService.GetProduct(c.Request.Context(), id)
	if err != nil {
		h.respondDomainError(c, err)
		return
	}
	h.respond(c, http.StatusOK, "OK", product)
}

// createProduct handles product creation
func (h *Handler) createProduct(c *gin.Context) {
	var req service.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, http.StatusUnprocessableEntity, "Invalid request body", err)
		return
	}

	product, err := h.productService.CreateProduct(c.Request.Context(), actorFrom(c), &req)
	if err != nil {
		h.respondDomainError(c, err)
		return
	}
	h.respond(c, http.StatusCreated, "Product created successfully", product)
}

// updateProduct handles partial product updates
func (h *Handler) updateProduct(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		h.respondError(c, http.StatusUnprocessableEntity, "Invalid product ID", nil)
		return
	}

	var req service.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, http.StatusUnprocessableEntity, "Invalid request body", err)
		return
	}

	product, err := h.productService.UpdateProduct(c.Request.Context(), actorFrom(c), id, &req)
	if err != nil {
		h.respondDomainError(c, err)
		return
	}
	h.respond(c, http.StatusOK, "Product updated successfully", product)
}

// deleteProduct handles soft deletion
func (h *Handler) deleteProduct(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		h.respondError(c, http.StatusUnprocessableEntity, "Invalid product ID", nil)
		return
	}

	if err := h.productService.DeleteProduct(c.Request.Context(), actorFrom(c), id); err != nil {
		h.respondDomainError(c, err)
		return
	}
	h.respond(c, http.StatusOK, "Product deleted successfully", nil)
}

// importProducts handles CSV bulk import. The file rides a multipart
// form under the "file" field.
func (h *Handler) importProducts(c *gin.Context) {
	file, _, err := c.Request.FormFile("file")
	if err != nil {
		h.respondError(c, http.StatusUnprocessableEntity, "Missing csv file", err)
		return
	}
	defer file.Close()

	result, err := h.productService.ImportProductsCSV(c.Request.Context(), actorFrom(c), file)
	if err != nil {
		h.respondDomainError(c, err)
		return
	}
	h.respond(c, http.StatusOK, "Import completed", result)
}
