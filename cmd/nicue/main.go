package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

type client struct {
	BaseURL   string
	DeviceID  string
	OutFormat string // "json" | "text"
	HTTP      *http.Client
}

func (c *client) get(path string) (int, []byte, error) {
	u := strings.TrimRight(c.BaseURL, "/") + path
	req, err := http.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return 0, nil, err
	}
	if c.DeviceID != "" {
		req.Header.Set("X-Hardware-ID", c.DeviceID)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, b, nil
}

func (c *client) print(status int, body []byte) {
	if c.OutFormat == "json" {
		var v any
		if json.Unmarshal(body, &v) == nil {
			p, _ := json.MarshalIndent(v, "", "  ")
			fmt.Println(string(p))
			return
		}
	}
	if len(body) > 0 {
		fmt.Println(string(body))
	} else {
		fmt.Printf("status=%d\n", status)
	}
}

func main() {
	var (
		baseURL  = envOr("NICUE_URL", "http://localhost:5000")
		out      = envOr("NICUE_OUT", "text")
		deviceID = envOr("NICUE_DEVICE_ID", "")
		token    string
		timeout  = 30 * time.Second
	)

	root := &cobra.Command{
		Use:   "nicue",
		Short: "CLI cliente para el nicue key server",
	}

	root.PersistentFlags().StringVar(&baseURL, "url", baseURL, "URL base del key server (env NICUE_URL)")
	root.PersistentFlags().StringVar(&out, "out", out, "Formato de salida: json|text")
	root.PersistentFlags().StringVar(&deviceID, "device", deviceID, "Hardware ID a mandar en X-Hardware-ID (env NICUE_DEVICE_ID)")

	cl := &client{HTTP: &http.Client{Timeout: timeout}}
	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		cl.BaseURL = baseURL
		cl.OutFormat = out
		cl.DeviceID = deviceID
	}

	// grupo key
	keyCmd := &cobra.Command{
		Use:   "key",
		Short: "Emisión y verificación de keys",
	}

	getCmd := &cobra.Command{
		Use:   "get",
		Short: "Pide una key nueva (o la activa de esta IP)",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/issue"
			if token != "" {
				path += "?client_token=" + url.QueryEscape(token)
			}
			status, body, err := cl.get(path)
			if err != nil {
				return err
			}
			cl.print(status, body)
			return nil
		},
	}
	getCmd.Flags().StringVar(&token, "token", "", "client_token del gate (si el server lo exige)")

	verifyCmd := &cobra.Command{
		Use:   "verify <id>",
		Short: "Verifica una key existente",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, body, err := cl.get("/verify/" + url.PathEscape(args[0]))
			if err != nil {
				return err
			}
			cl.print(status, body)
			return nil
		},
	}

	keyCmd.AddCommand(getCmd, verifyCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Estadísticas operativas del servidor",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, body, err := cl.get("/status")
			if err != nil {
				return err
			}
			cl.print(status, body)
			return nil
		},
	}

	healthCmd := &cobra.Command{
		Use:   "health",
		Short: "Liveness check",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, body, err := cl.get("/health")
			if err != nil {
				return err
			}
			cl.print(status, body)
			return nil
		},
	}

	root.AddCommand(keyCmd, statusCmd, healthCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
