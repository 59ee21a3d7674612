// internal/interfaces/http/handlers/course.go
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/your-org/academy-backend/internal/config"
	"github.com/your-org/academy-backend/internal/domain/course"
	"gorm.io/gorm"
)

// CourseHandler handles course catalog endpoints
type CourseHandler struct {
	courseService *course.Service
	config        *config.Config
}

// NewCourseHandler creates a new course handler
func NewCourseHandler(db *gorm.DB, cfg *config.Config) *CourseHandler {
	return &CourseHandler{
		courseService: course.NewService(db, cfg),
		config:        cfg,
	}
}

// ListCourses returns all active courses
func (h *CourseHandler) ListCourses(c *gin.Context) {
	courses, err := h.courseService.ListActive()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to load courses",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": courses,
	})
}

// GetCourse returns a single active course by ID or slug
func (h *CourseHandler) GetCourse(c *gin.Context) {
	param := c.Param("id")

	var (
		crs *course.Course
		err error
	)
	if id, parseErr := strconv.ParseUint(param, 10, 32); parseErr == nil {
		crs, err = h.courseService.GetActive(uint(id))
	} else {
		crs, err = h.courseService.GetBySlug(param)
	}

	if err != nil {
		if errors.Is(err, course.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Course not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to load course",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": crs,
	})
}

// CreateCourse creates a new course (admin)
func (h *CourseHandler) CreateCourse(c *gin.Context) {
	var req course.CreateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	crs, err := h.courseService.Create(&req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Course created successfully",
		"data":    crs,
	})
}

// UpdateCourse updates an existing course (admin)
func (h *CourseHandler) UpdateCourse(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid course ID",
		})
		return
	}

	var req course.UpdateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	crs, err := h.courseService.Update(uint(id), &req)
	if err != nil {
		if errors.Is(err, course.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Course not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Course updated successfully",
		"data":    crs,
	})
}

// DeleteCourse soft-deletes a course (admin)
func (h *CourseHandler) DeleteCourse(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid course ID",
		})
		return
	}

	if err := h.courseService.Delete(uint(id)); err != nil {
		if errors.Is(err, course.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Course not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Course deleted successfully",
	})
}
