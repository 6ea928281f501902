package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"syscall"

	"github.com/docopt/docopt-go"
	"golang.org/x/term"

	"github.com/communityqa/board/board"
)

const BoardCtlVersion = "0.0.1"

var Out *log.Logger
var Err *log.Logger

func init() {
	Out = log.New(os.Stdout, "", 0)
	Err = log.New(os.Stderr, "", log.Ldate|log.Ltime|log.Lshortfile)
}

func main() {
	usage := `Board control.

The default urls are:
    api_url: http://localhost:8000
    stream_url: ws://localhost:8000/ws

Usage:
    boardctl questions [--api_url=<api_url>]
    boardctl stream [--api_url=<api_url>] [--stream_url=<stream_url>]
    boardctl ask [--api_url=<api_url>] [--anonymous] <content>
    boardctl answer [--api_url=<api_url>] --jwt=<jwt>
        <question_id> <content>
    boardctl status [--api_url=<api_url>] --jwt=<jwt>
        <question_id> <status>
    boardctl suggest [--api_url=<api_url>] --jwt=<jwt> <question_id>
    boardctl register [--api_url=<api_url>]
        --user=<username>
        --email=<email>
    boardctl login [--api_url=<api_url>] --user=<username>
    boardctl whoami --jwt=<jwt>

Options:
    -h --help                  Show this screen.
    --version                  Show version.
    --api_url=<api_url>
    --stream_url=<stream_url>
    --jwt=<jwt>                Your board JWT.
    --user=<username>
    --email=<email>
    --anonymous                Post the question anonymously.`

	opts, err := docopt.ParseArgs(usage, os.Args[1:], BoardCtlVersion)
	if err != nil {
		panic(err)
	}

	if questions_, _ := opts.Bool("questions"); questions_ {
		questions(opts)
	} else if stream_, _ := opts.Bool("stream"); stream_ {
		stream(opts)
	} else if ask_, _ := opts.Bool("ask"); ask_ {
		ask(opts)
	} else if answer_, _ := opts.Bool("answer"); answer_ {
		answer(opts)
	} else if status_, _ := opts.Bool("status"); status_ {
		status(opts)
	} else if suggest_, _ := opts.Bool("suggest"); suggest_ {
		suggest(opts)
	} else if register_, _ := opts.Bool("register"); register_ {
		register(opts)
	} else if login_, _ := opts.Bool("login"); login_ {
		login(opts)
	} else if whoami_, _ := opts.Bool("whoami"); whoami_ {
		whoami(opts)
	}
}

func apiUrl(opts docopt.Opts) string {
	if apiUrl_, err := opts.String("--api_url"); err == nil {
		return apiUrl_
	}
	return "http://localhost:8000"
}

func streamUrl(opts docopt.Opts) string {
	if streamUrl_, err := opts.String("--stream_url"); err == nil {
		return streamUrl_
	}
	return "ws://localhost:8000/ws"
}

func newApi(opts docopt.Opts) *board.BoardApi {
	api := board.NewBoardApi(apiUrl(opts))
	if jwt, err := opts.String("--jwt"); err == nil {
		api.SetByJwt(jwt)
	}
	return api
}

func questionId(opts docopt.Opts) int64 {
	questionIdStr, err := opts.String("<question_id>")
	if err != nil {
		Err.Fatalf("Missing question_id.")
	}
	questionId_, err := strconv.ParseInt(questionIdStr, 10, 64)
	if err != nil {
		Err.Fatalf("Bad question_id: %s", questionIdStr)
	}
	return questionId_
}

func printQuestion(question *board.Question) {
	sentiment := ""
	if question.Sentiment != nil {
		sentiment = fmt.Sprintf(" [%s]", *question.Sentiment)
	}
	Out.Printf(
		"#%d (%s)%s %s",
		question.Id,
		question.Status,
		sentiment,
		question.Content,
	)
	for _, answer := range question.Answers {
		Out.Printf("    #%d by user %d: %s", answer.Id, answer.UserId, answer.Content)
	}
}

func questions(opts docopt.Opts) {
	api := newApi(opts)
	result, err := api.GetQuestionsSync()
	if err != nil {
		Err.Fatalf("Could not fetch questions: %s", err)
	}
	store := board.NewQuestionStore()
	for _, question := range result {
		store.Apply(&board.NewQuestionEvent{
			Question: question,
		})
	}
	for _, question := range store.Ordered() {
		printQuestion(question)
	}
}

func stream(opts docopt.Opts) {
	session, err := board.NewBoardSessionWithDefaults(
		context.Background(),
		apiUrl(opts),
		streamUrl(opts),
	)
	if err != nil {
		Err.Fatalf("Could not start session: %s", err)
	}
	defer session.Close()

	for {
		for _, question := range session.Questions() {
			printQuestion(question)
		}
		Out.Printf("---")
		<-session.Updates()
	}
}

func ask(opts docopt.Opts) {
	content, _ := opts.String("<content>")
	anonymous, _ := opts.Bool("--anonymous")

	api := newApi(opts)
	question, err := api.CreateQuestionSync(&board.CreateQuestionArgs{
		Content:     content,
		IsAnonymous: anonymous,
	})
	if err != nil {
		Err.Fatalf("Could not create question: %s", err)
	}
	printQuestion(question)
}

func answer(opts docopt.Opts) {
	content, _ := opts.String("<content>")

	api := newApi(opts)
	answer_, err := api.AnswerQuestionSync(&board.AnswerQuestionArgs{
		QuestionId: questionId(opts),
		Content:    content,
	})
	if err != nil {
		Err.Fatalf("Could not answer question: %s", err)
	}
	Out.Printf("answer #%d posted", answer_.Id)
}

func status(opts docopt.Opts) {
	statusStr, _ := opts.String("<status>")
	status_, err := board.ParseQuestionStatus(statusStr)
	if err != nil {
		Err.Fatalf("%s", err)
	}

	api := newApi(opts)
	question, err := api.SetQuestionStatusSync(&board.SetQuestionStatusArgs{
		QuestionId: questionId(opts),
		Status:     status_,
	})
	if err != nil {
		Err.Fatalf("Could not update status: %s", err)
	}
	printQuestion(question)
}

func suggest(opts docopt.Opts) {
	api := newApi(opts)
	result, err := api.SuggestAnswerSync(&board.SuggestAnswerArgs{
		QuestionId: questionId(opts),
	})
	if err != nil {
		Err.Fatalf("Could not fetch suggestion: %s", err)
	}
	Out.Printf("%s", result.Suggestion)
}

func register(opts docopt.Opts) {
	username, _ := opts.String("--user")
	email, _ := opts.String("--email")
	password := readPassword()

	api := newApi(opts)
	result, err := api.AuthRegisterSync(&board.AuthRegisterArgs{
		Username: username,
		Email:    email,
		Password: password,
	})
	if err != nil {
		Err.Fatalf("Could not register: %s", err)
	}
	Out.Printf("registered %s (%s)", result.Username, result.Role)
}

func login(opts docopt.Opts) {
	username, _ := opts.String("--user")
	password := readPassword()

	api := newApi(opts)
	result, err := api.AuthLoginSync(&board.AuthLoginArgs{
		Username: username,
		Password: password,
	})
	if err != nil {
		Err.Fatalf("Could not log in: %s", err)
	}
	Out.Printf("%s", result.AccessToken)
}

func whoami(opts docopt.Opts) {
	jwt, err := opts.String("--jwt")
	if err != nil {
		Err.Fatalf("Missing jwt.")
	}
	byJwt, err := board.ParseByJwtUnverified(jwt)
	if err != nil {
		Err.Fatalf("Could not parse jwt: %s", err)
	}
	Out.Printf("%s (%s)", byJwt.Username, byJwt.Role)
}

func readPassword() string {
	fmt.Fprintf(os.Stderr, "Password: ")
	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintf(os.Stderr, "\n")
	if err != nil {
		Err.Fatalf("Could not read password: %s", err)
	}
	return string(passwordBytes)
}
