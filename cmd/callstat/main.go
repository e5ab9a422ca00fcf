// Command callstat prints the live and recent calls of a Callroom server.
//
// It can also mint a bearer token for local testing (-mint).
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/pterm/pterm"

	router "github.com/dkeye/Callroom/internal/adapters/http"
	"github.com/dkeye/Callroom/internal/domain"
	"github.com/dkeye/Callroom/internal/protocol"
)

func main() {
	addr := flag.String("addr", "http://localhost:8080", "Server base URL")
	token := flag.String("token", os.Getenv("CALLROOM_TOKEN"), "Bearer token for the admin API")
	showHistory := flag.Bool("history", false, "Show finished calls instead of live ones")
	limit := flag.Int("limit", 20, "Number of finished calls to show")
	mint := flag.String("mint", "", "Print a token for this user id and exit")
	secret := flag.String("secret", os.Getenv("CALLROOM_JWT_SECRET"), "Signing secret used by -mint")
	ttl := flag.Duration("ttl", 24*time.Hour, "Lifetime of a minted token")
	flag.Parse()

	if *mint != "" {
		if *secret == "" {
			pterm.Error.Println("-mint needs -secret or CALLROOM_JWT_SECRET")
			os.Exit(2)
		}
		tok, err := router.IssueToken(*secret, *mint, *ttl)
		if err != nil {
			pterm.Error.Println(err)
			os.Exit(1)
		}
		fmt.Println(tok)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	c := &client{base: *addr, token: *token}

	var err error
	if *showHistory {
		err = c.printHistory(ctx, *limit)
	} else {
		err = c.printActive(ctx)
	}
	if err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}

type client struct {
	base  string
	token string
}

func (c *client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: %s", path, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *client) printActive(ctx context.Context) error {
	var snap protocol.ActiveCalls
	if err := c.get(ctx, "/api/calls", &snap); err != nil {
		return err
	}
	if len(snap.Calls) == 0 {
		pterm.Info.Println("no active calls")
		return nil
	}
	data := pterm.TableData{{"Room", "Type", "Status", "Participants", "Duration"}}
	for _, call := range snap.Calls {
		data = append(data, []string{
			string(call.RoomID),
			string(call.CallType),
			string(call.Status),
			strconv.Itoa(call.ParticipantCount),
			formatSeconds(call.Duration),
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

func (c *client) printHistory(ctx context.Context, limit int) error {
	var body struct {
		Calls []domain.CallRecord `json:"calls"`
	}
	if err := c.get(ctx, "/api/calls/history?limit="+strconv.Itoa(limit), &body); err != nil {
		return err
	}
	if len(body.Calls) == 0 {
		pterm.Info.Println("no finished calls")
		return nil
	}
	data := pterm.TableData{{"Room", "Type", "Ended", "Reason", "Participants", "Duration"}}
	for _, rec := range body.Calls {
		data = append(data, []string{
			string(rec.RoomID),
			string(rec.CallType),
			rec.EndedAt.Local().Format(time.DateTime),
			rec.Reason,
			strconv.Itoa(len(rec.Participants)),
			formatSeconds(rec.Duration),
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

func formatSeconds(s int64) string {
	return (time.Duration(s) * time.Second).String()
}
