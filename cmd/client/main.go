// Line-based terminal client for the crash server. Reads commands from
// stdin ("Q" quit, "C" cash out, a positive number to bet) while a
// background goroutine renders server events.
package main

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"

	"crashd/internal/wire"
)

func usage() {
	fmt.Println("Error: Invalid number of arguments")
	fmt.Printf("usage: %s <server address> <port> -nick <nickname>\n", os.Args[0])
	os.Exit(1)
}

func main() {
	if len(os.Args) < 5 || os.Args[3] != "-nick" {
		usage()
	}
	host, port, nickname := os.Args[1], os.Args[2], os.Args[4]
	if len(nickname) >= wire.MaxNicknameLen {
		fmt.Printf("Error: Nickname too long (max %d)\n", wire.MaxNicknameLen-1)
		os.Exit(1)
	}
	if nickname == "" {
		fmt.Println("Error: Empty nickname")
		os.Exit(1)
	}

	conn, err := net.Dial("tcp", net.JoinHostPort(host, port))
	if err != nil {
		fmt.Printf("Error: connect: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close()
	fmt.Printf("connected to %s\n", host)

	if err := wire.WriteNickname(conn, nickname); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	serverGone := make(chan int, 1)
	go readServer(conn, nickname, serverGone)

	input := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			input <- strings.TrimSpace(scanner.Text())
		}
		close(input)
	}()

	for {
		select {
		case code := <-serverGone:
			os.Exit(code)
		case line, ok := <-input:
			if !ok {
				sendQuit(conn, nickname)
				os.Exit(0)
			}
			if !handleCommand(conn, nickname, line) {
				os.Exit(0)
			}
		}
	}
}

// handleCommand reacts to one stdin line; returns false on quit.
func handleCommand(conn net.Conn, nickname, line string) bool {
	switch {
	case line == "Q":
		sendQuit(conn, nickname)
		return false

	case line == "C":
		send(conn, wire.Message{Type: wire.TagCashout})

	default:
		bet, err := strconv.ParseFloat(line, 32)
		if err != nil {
			fmt.Println("Error: Invalid command")
			return true
		}
		if bet <= 0 {
			fmt.Println("Error: Invalid bet value")
			return true
		}
		send(conn, wire.Message{Type: wire.TagBet, Value: float32(bet)})
		fmt.Printf("Bet received: $%.2f\n", bet)
	}
	return true
}

func sendQuit(conn net.Conn, nickname string) {
	send(conn, wire.Message{Type: wire.TagBye})
	fmt.Printf("Bet responsibly. Come back soon, %s.\n", nickname)
}

func send(conn net.Conn, m wire.Message) {
	m.PlayerID = 0 // the server attributes by connection, not by field
	if err := wire.WriteMessage(conn, m); err != nil {
		fmt.Printf("Error: send: %v\n", err)
		os.Exit(1)
	}
}

func readServer(conn net.Conn, nickname string, done chan<- int) {
	var profit float32
	for {
		m, err := wire.ReadMessage(conn)
		if err != nil {
			if err == io.EOF {
				fmt.Println("Server disconnected.")
				done <- 0
			} else {
				fmt.Printf("Error: %v\n", err)
				done <- 1
			}
			return
		}

		switch m.Type {
		case wire.TagStart:
			fmt.Printf("Round open! Enter your bet or press [Q] to quit (%.0f seconds remaining):\n", m.Value)
		case wire.TagClosed:
			fmt.Println("Bets are closed! No more bets this round.")
		case wire.TagMultiplier:
			fmt.Printf("Current multiplier: %.2fx\n", m.Value)
		case wire.TagPayout:
			fmt.Printf("You cashed out at %.2fx!\n", m.Value)
			profit = m.PlayerProfit
			fmt.Printf("Current profit: $%.2f\n", profit)
		case wire.TagExplode:
			fmt.Printf("The plane exploded at: %.2fx\n", m.Value)
		case wire.TagProfit:
			if m.PlayerID != wire.BroadcastID {
				if m.PlayerProfit < profit {
					fmt.Printf("You lost $%.2f. Try again next round!\n", profit-m.PlayerProfit)
				}
				profit = m.PlayerProfit
				fmt.Printf("Current profit: $%.2f\n", profit)
			} else {
				fmt.Printf("House profit: $%.2f\n", m.HouseProfit)
			}
		case wire.TagBye:
			if m.PlayerID == wire.BroadcastID {
				fmt.Println("The server is going down. See you soon!")
				done <- 0
				return
			}
			fmt.Printf("Bet responsibly. Come back soon, %s.\n", nickname)
		}
	}
}
