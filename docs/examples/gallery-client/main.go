// Imgpress Gallery Client Example
//
// This is a minimal example of driving the gallery API end to end:
// register an account, log in, upload an image for compression and
// print the resulting gallery.
//
// Usage:
//
//	go run main.go -base-url http://localhost:8080 -username demo -password secret photo.jpg

package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
)

type loginResponse struct {
	Message string `json:"message"`
	Token   string `json:"jwt"`
}

type galleryResponse struct {
	Message    string   `json:"message"`
	Images     []string `json:"images"`
	ImageNames []string `json:"image_names"`
}

type uploadResponse struct {
	Filename string `json:"filename"`
}

func main() {
	var (
		baseURL   = flag.String("base-url", "http://localhost:8080", "API base URL")
		username  = flag.String("username", "demo", "Account username")
		password  = flag.String("password", "demo-password", "Account password")
		greyscale = flag.Bool("greyscale", false, "Request a greyscale derivation")
	)
	flag.Parse()

	if flag.NArg() != 1 {
		log.Fatal("usage: gallery-client [flags] <image file>")
	}
	imagePath := flag.Arg(0)

	// Registration is idempotent for our purposes: an already-taken username
	// just means we log straight in.
	if err := postJSON(*baseURL+"/register", map[string]string{
		"username": *username,
		"password": *password,
	}, nil); err != nil {
		log.Printf("register: %v (continuing, account may already exist)", err)
	}

	var login loginResponse
	if err := postJSON(*baseURL+"/login", map[string]string{
		"username": *username,
		"password": *password,
	}, &login); err != nil {
		log.Fatalf("login: %v", err)
	}
	if login.Token == "" {
		log.Fatalf("login failed: %s", login.Message)
	}
	log.Printf("logged in as %s", *username)

	filename, err := upload(*baseURL, *username, login.Token, imagePath, *greyscale)
	if err != nil {
		log.Fatalf("upload: %v", err)
	}
	log.Printf("stored as %s", filename)

	gallery, err := fetchGallery(*baseURL, *username, login.Token)
	if err != nil {
		log.Fatalf("fetch gallery: %v", err)
	}

	fmt.Printf("gallery for %s (%d images):\n", *username, len(gallery.Images))
	for i, imageURL := range gallery.Images {
		fmt.Printf("  %s\t%s\n", gallery.ImageNames[i], imageURL)
	}
}

func postJSON(endpoint string, payload map[string]string, out any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	resp, err := http.Post(endpoint, "application/json", bytes.NewReader(data))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s returned %d: %s", endpoint, resp.StatusCode, body)
	}

	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func upload(baseURL, username, token, imagePath string, greyscale bool) (string, error) {
	file, err := os.Open(imagePath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("username", username)
	_ = mw.WriteField("token", token)
	if greyscale {
		_ = mw.WriteField("greyscale", "true")
	}
	fw, err := mw.CreateFormFile("file", imagePath)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(fw, file); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	resp, err := http.Post(baseURL+"/compress_img", mw.FormDataContentType(), &buf)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("upload returned %d: %s", resp.StatusCode, body)
	}

	var out uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	return out.Filename, nil
}

func fetchGallery(baseURL, username, token string) (*galleryResponse, error) {
	endpoint := fmt.Sprintf("%s/get_images?username=%s&token=%s",
		baseURL, url.QueryEscape(username), url.QueryEscape(token))

	resp, err := http.Get(endpoint)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("gallery returned %d: %s", resp.StatusCode, body)
	}

	var out galleryResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}
