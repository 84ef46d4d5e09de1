package main

import (
	"chat-relay/domain"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
)

func main() {
	addr := flag.String("addr", "http://localhost:3000", "Base URL of the relay")
	flag.Parse()

	snapshot, err := fetchSnapshot(*addr + "/sessions")
	if err != nil {
		log.Fatal("Error while reading sessions: ", err)
	}

	fmt.Printf("Open connections: %d\n\n", snapshot.Connections)

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"#", "Nickname", "State"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	row := 1
	for _, name := range snapshot.Nicknames {
		table.Append([]string{strconv.Itoa(row), name.String(), "bound"})
		row++
	}
	// Pending names are held by nobody, waiting for a reconnect or their leave
	for _, name := range snapshot.Pending {
		table.Append([]string{strconv.Itoa(row), name.String(), "grace"})
		row++
	}

	table.Render()
}

func fetchSnapshot(url string) (domain.Snapshot, error) {
	client := http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return domain.Snapshot{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.Snapshot{}, fmt.Errorf("unexpected status %s", resp.Status)
	}
	var snapshot domain.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
		return domain.Snapshot{}, fmt.Errorf("decoding snapshot: %w", err)
	}
	return snapshot, nil
}
