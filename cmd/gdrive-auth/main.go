// Command gdrive-auth obtains the Google Drive refresh token needed
// by the gdrive storage provider. Run it once with GDRIVE_CLIENT_ID
// and GDRIVE_CLIENT_SECRET set, follow the printed URL, and export the
// resulting token as GDRIVE_REFRESH_TOKEN.
package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	drive "google.golang.org/api/drive/v3"
)

const authTimeout = 3 * time.Minute

func main() {
	clientID := mustEnv("GDRIVE_CLIENT_ID")
	clientSecret := mustEnv("GDRIVE_CLIENT_SECRET")

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		log.Fatal(err)
	}
	defer ln.Close()

	conf := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		// drive.file scope only: the provider never touches files it
		// did not create.
		Scopes:      []string{drive.DriveFileScope},
		RedirectURL: fmt.Sprintf("http://127.0.0.1:%d/callback", ln.Addr().(*net.TCPAddr).Port),
	}

	// Offline access with forced consent so Google returns a refresh
	// token even for a previously authorized client.
	state := randomState()
	authURL := conf.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)

	fmt.Println("\nOpen this URL in your browser:")
	fmt.Println(authURL)
	fmt.Println("\nWaiting for authorization on:", conf.RedirectURL)

	code, err := waitForCode(ln, state)
	if err != nil {
		log.Fatal(err)
	}

	tok, err := conf.Exchange(context.Background(), code)
	if err != nil {
		log.Fatal(err)
	}
	if strings.TrimSpace(tok.RefreshToken) == "" {
		fmt.Println("\nNo refresh token was returned.")
		fmt.Println("Revoke the app's previous access and run this command again:")
		fmt.Println("https://myaccount.google.com/permissions")
		os.Exit(1)
	}

	fmt.Println("\nRefresh token:")
	fmt.Println(tok.RefreshToken)
}

// waitForCode serves the loopback callback until Google redirects back
// with an authorization code, a denial, or the timeout expires.
func waitForCode(ln net.Listener, state string) (string, error) {
	type result struct {
		code string
		err  error
	}
	results := make(chan result, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case q.Get("state") != state:
			http.Error(w, "invalid state", http.StatusBadRequest)
			results <- result{err: errors.New("invalid state")}
		case q.Get("error") != "":
			http.Error(w, "auth error: "+q.Get("error"), http.StatusBadRequest)
			results <- result{err: fmt.Errorf("auth error: %s", q.Get("error"))}
		case q.Get("code") == "":
			http.Error(w, "missing code", http.StatusBadRequest)
			results <- result{err: errors.New("missing code")}
		default:
			fmt.Fprintln(w, "Authorized. You can close this window and return to the terminal.")
			results <- result{code: q.Get("code")}
		}
	})

	srv := &http.Server{
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() { _ = srv.Serve(ln) }()
	defer srv.Close()

	select {
	case res := <-results:
		return res.code, res.err
	case <-time.After(authTimeout):
		return "", errors.New("timed out waiting for authorization")
	}
}

func mustEnv(k string) string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		log.Fatal("missing env: " + k)
	}
	return v
}

func randomState() string {
	b := make([]byte, 18)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}
