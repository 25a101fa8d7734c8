package utils

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/exp/rand"
)

// SendJSONResponse sends a JSON response with the given status code and data
func SendJSONResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// HandleError standardizes error handling by sending a JSON error response
func HandleError(w http.ResponseWriter, status int, message string) {
	SendJSONResponse(w, status, map[string]string{
		"message": message,
	})
}

// HandleFieldErrors sends per-field validation errors as a 400 response
func HandleFieldErrors(w http.ResponseWriter, errors map[string]string) {
	SendJSONResponse(w, http.StatusBadRequest, map[string]interface{}{
		"message": "Validation failed",
		"errors":  errors,
	})
}

// SaveImageFile saves the uploaded image file to the specified directory with a new name
func SaveImageFile(file io.Reader, table string, filename string) (string, error) {
	fullPath := filepath.Join("uploads", table)
	if err := os.MkdirAll(fullPath, os.ModePerm); err != nil {
		return "", err
	}

	// Generate new filename
	randomNumber := rand.Intn(1000)
	timestamp := time.Now().Unix()
	ext := filepath.Ext(filename)
	newFileName := fmt.Sprintf("%s_%d_%d%s", filepath.Base(table), timestamp, randomNumber, ext)
	newFilePath := filepath.Join(fullPath, newFileName)

	destFile, err := os.Create(newFilePath)
	if err != nil {
		return "", err
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, file); err != nil {
		return "", err
	}

	return newFilePath, nil
}

// DeleteImageFile deletes the specified file from the filesystem
func DeleteImageFile(filePath string) error {
	return os.Remove(filePath)
}

// HashPassword hashes a plaintext password using bcrypt
func HashPassword(password string) (string, error) {
	hashPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashPassword), nil
}

// CheckPassword compares a bcrypt hash with a plaintext candidate
func CheckPassword(hashedPassword, plainPassword string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(plainPassword))
}

// ErrorWithTrace annotates an error with the caller's file and line
func ErrorWithTrace(err error, errMessage string) error {
	if err != nil {
		_, file, line, _ := runtime.Caller(1)
		return fmt.Errorf("%s:%d: %v %s", file, line, err, errMessage)
	}
	return nil
}
