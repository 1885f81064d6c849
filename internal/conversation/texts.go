package conversation

// Texts holds every user-facing string of the dialogue. Format verbs are
// documented next to the fields that take arguments.
type Texts struct {
	Greeting    string // %s first name
	GreetingAny string
	Fallback    string

	MenuBook     string
	MenuServices string
	MenuMine     string
	MenuDiscount string
	MenuAbout    string
	MenuContacts string
	MenuMain     string

	AskEmail         string
	InvalidEmail     string
	CodeSent         string // %s email
	AlreadyConfirmed string
	EmailConfirmed   string
	MalformedCode    string
	WrongCode        string
	NoPending        string

	ChooseService   string
	ChooseDate      string
	NoDates         string
	DateUnavailable string
	ChooseTime      string // %s date
	NoTimes         string // %s date
	TimeUnavailable string
	ConfirmPrompt   string // %s service, %s date, %s time
	ConfirmButton   string
	Booked          string // %s date, %s time
	SlotTaken       string
	BookingFailed   string

	NoBookings     string
	BookingsHeader string
	BookingLine    string // %s service, %s date, %s time
	ChooseAction   string
	DeleteButton   string
	ChooseDelete   string
	Deleted        string
	DeleteFailed   string

	ServicesInfo  string
	AboutInfo     string
	ContactsInfo  string
	DiscountInfo  string // %d percent
	PlayButton    string
	DiscountWon   string // %d value, %d percent
	DiscountLost  string // %d first, %d second
	AlreadyPlayed string

	GenericError string
}

// DefaultTexts returns the English dialogue.
func DefaultTexts() Texts {
	return Texts{
		Greeting:    "Hello, %s! I can book you in for a manicure. Choose an option below.",
		GreetingAny: "Hello! I can book you in for a manicure. Choose an option below.",
		Fallback:    "Please choose an option from the menu.",

		MenuBook:     "📅 Book an appointment",
		MenuServices: "💅 Services and prices",
		MenuMine:     "📋 My bookings",
		MenuDiscount: "🎲 Discount game",
		MenuAbout:    "ℹ️ About us",
		MenuContacts: "📞 Contacts",
		MenuMain:     "⬅️ Main menu",

		AskEmail:         "Please enter your email address. We will send you a confirmation code.",
		InvalidEmail:     "That does not look like a valid email address. Please try again.",
		CodeSent:         "We sent a 4-digit confirmation code to %s. Please enter it here.",
		AlreadyConfirmed: "Your email is already confirmed.",
		EmailConfirmed:   "Email confirmed!",
		MalformedCode:    "The confirmation code must consist of 4 digits.",
		WrongCode:        "Wrong code. Please check the email and try again.",
		NoPending:        "We could not find a pending verification. Please enter your email again.",

		ChooseService:   "Choose a service:",
		ChooseDate:      "Choose a date:",
		NoDates:         "There are no free dates in the next two weeks. Please check back later.",
		DateUnavailable: "This date is no longer available. Please choose another one.",
		ChooseTime:      "Choose a time on %s:",
		NoTimes:         "There are no free times left on %s. Please choose another date.",
		TimeUnavailable: "This time is no longer available. Please choose another one.",
		ConfirmPrompt:   "Please check your booking:\nService: %s\nDate: %s\nTime: %s",
		ConfirmButton:   "✅ Confirm",
		Booked:          "Your booking is confirmed! See you on %s at %s.",
		SlotTaken:       "Sorry, this time was just taken. Please choose another one.",
		BookingFailed:   "Something went wrong with your booking. Please start again.",

		NoBookings:     "You have no bookings.",
		BookingsHeader: "Your bookings:",
		BookingLine:    "Service: %s, Date: %s, Time: %s",
		ChooseAction:   "What would you like to do?",
		DeleteButton:   "🗑 Delete a booking",
		ChooseDelete:   "Choose a booking to delete:",
		Deleted:        "Your booking was deleted.",
		DeleteFailed:   "Could not delete the booking. It may have been removed already.",

		ServicesInfo:  "*Services*\nManicure: 1500\nFile manicure: 1200\nComplex (manicure + gel polish): 2500",
		AboutInfo:     "*About us*\nA cosy single-chair nail studio. Open Monday to Friday, 10:00 to 19:00.",
		ContactsInfo:  "*Contacts*\nPhone: +1 555 0100\nAddress: 1 Main Street",
		DiscountInfo:  "Roll two dice once a day. If both show the same value you get %d%% off your next visit!",
		PlayButton:    "🎲 Roll the dice",
		DiscountWon:   "Lucky! Both dice show %d. You get %d%% off your next visit.",
		DiscountLost:  "You rolled %d and %d. No luck this time, try again tomorrow!",
		AlreadyPlayed: "You have already played today. Come back tomorrow!",

		GenericError: "Something went wrong. Please try again later.",
	}
}
