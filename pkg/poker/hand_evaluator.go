package poker

import (
	"github.com/chehsunliu/poker"
)

// HandRank represents the category of a poker hand
type HandRank int

const (
	HighCard HandRank = iota
	Pair
	TwoPair
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
)

// String returns the display name of the rank.
func (r HandRank) String() string {
	switch r {
	case Pair:
		return "Pair"
	case TwoPair:
		return "Two Pair"
	case ThreeOfAKind:
		return "Three of a Kind"
	case Straight:
		return "Straight"
	case Flush:
		return "Flush"
	case FullHouse:
		return "Full House"
	case FourOfAKind:
		return "Four of a Kind"
	case StraightFlush:
		return "Straight Flush"
	default:
		return "High Card"
	}
}

// HandValue represents a complete evaluation of a hand
type HandValue struct {
	Rank        HandRank
	RankValue   int32 // chehsunliu score, lower is better
	Description string
}

// convertCardToChehsunliu converts our Card type to the chehsunliu/poker Card type
func convertCardToChehsunliu(card Card) poker.Card {
	var rankChar byte
	switch card.value {
	case Ten:
		rankChar = 'T'
	case Jack:
		rankChar = 'J'
	case Queen:
		rankChar = 'Q'
	case King:
		rankChar = 'K'
	case Ace:
		rankChar = 'A'
	default:
		rankChar = card.value[0]
	}

	var suitChar byte
	switch card.suit {
	case Hearts:
		suitChar = 'h'
	case Diamonds:
		suitChar = 'd'
	case Clubs:
		suitChar = 'c'
	default:
		suitChar = 's'
	}

	return poker.NewCard(string([]byte{rankChar, suitChar}))
}

// convertRankClassToHandRank converts chehsunliu rank class to our HandRank
func convertRankClassToHandRank(rankClass int32) HandRank {
	switch rankClass {
	case 1:
		return StraightFlush
	case 2:
		return FourOfAKind
	case 3:
		return FullHouse
	case 4:
		return Flush
	case 5:
		return Straight
	case 6:
		return ThreeOfAKind
	case 7:
		return TwoPair
	case 8:
		return Pair
	default:
		return HighCard
	}
}

// EvaluateHand evaluates a player's best 5-card hand from hole cards and board.
func EvaluateHand(holeCards []Card, communityCards []Card) HandValue {
	all := make([]poker.Card, 0, len(holeCards)+len(communityCards))
	for _, c := range holeCards {
		all = append(all, convertCardToChehsunliu(c))
	}
	for _, c := range communityCards {
		all = append(all, convertCardToChehsunliu(c))
	}

	rank := poker.Evaluate(all)
	return HandValue{
		Rank:        convertRankClassToHandRank(poker.RankClass(rank)),
		RankValue:   rank,
		Description: poker.RankString(rank),
	}
}

// CompareHands compares two hand values and returns:
// -1 if handA is worse, 0 on a tie, 1 if handA is better.
func CompareHands(handA, handB HandValue) int {
	switch {
	case handA.RankValue > handB.RankValue:
		return -1
	case handA.RankValue < handB.RankValue:
		return 1
	}
	return 0
}
